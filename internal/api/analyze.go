// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"

	"github.com/leasewise/client/internal/models"
)

// uploadField is the multipart field the analysis endpoint reads the PDF from.
const uploadField = "file"

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// UploadAndAnalyze posts the PDF at filePath to /analyze and returns the
// decoded analysis. The result's FileName is always fileName; the server
// does not echo it.
//
// A 200 response carrying an "error" key is a failure. Nothing is retried;
// retrying is up to the user.
func (c *Client) UploadAndAnalyze(ctx context.Context, filePath, fileName string) (*models.ContractAnalysis, error) {
	body, contentType, err := multipartPDF(filePath, fileName)
	if err != nil {
		return nil, &Error{Op: opAnalyze.name, Kind: KindTransport, Message: "Could not read the selected file", Err: err}
	}

	slog.Info("uploading contract for analysis",
		"file_name", fileName,
		"bytes", body.Len(),
	)

	resp, err := c.do(ctx, opAnalyze, c.uploadTimeout, http.MethodPost, "/analyze", body, contentType)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := resp.errorMessage()
		if msg == "" {
			msg = resp.detailMessage()
		}
		return nil, opAnalyze.serverError(resp.StatusCode, msg)
	}

	if resp.parseErr != nil {
		return nil, &Error{Op: opAnalyze.name, Kind: KindTransport, Message: opAnalyze.failed, StatusCode: resp.StatusCode, Err: resp.parseErr}
	}
	if msg, ok := resp.errorMessage(); ok {
		return nil, opAnalyze.serverError(resp.StatusCode, msg)
	}

	analysis := models.Decode(resp.Payload)
	analysis.FileName = fileName

	slog.Info("contract analysis received",
		"contract_id", analysis.ContractID,
		"score", analysis.Fairness.Score,
		"rating", analysis.Fairness.Rating,
		"red_flags", len(analysis.SLA.RedFlags),
	)
	return &analysis, nil
}

// multipartPDF encodes the file as the single "file" part of a form body.
func multipartPDF(filePath, fileName string) (*bytes.Buffer, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		uploadField, quoteEscaper.Replace(fileName)))
	h.Set("Content-Type", "application/pdf")

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", filePath, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// GetContract loads a previously analyzed contract from GET /contract/{id}.
// The stored analysis is decoded with the same tolerant rules as a fresh
// upload.
func (c *Client) GetContract(ctx context.Context, contractID int) (*models.ContractAnalysis, error) {
	p, err := c.getPayload(ctx, opContract, fmt.Sprintf("/contract/%d", contractID))
	if err != nil {
		return nil, err
	}

	stored := models.Payload{}
	switch a := p["analysis"].(type) {
	case map[string]any:
		for k, v := range a {
			stored[k] = v
		}
	case string:
		// Older rows keep the analysis as a JSON string.
		if parsed, err := parsePayload([]byte(a)); err == nil {
			stored = parsed
		}
	}
	stored["contract_id"] = p["contract_id"]
	stored["file_name"] = p["file_name"]

	analysis := models.Decode(stored)
	if analysis.ContractID == 0 {
		analysis.ContractID = contractID
	}
	return &analysis, nil
}
