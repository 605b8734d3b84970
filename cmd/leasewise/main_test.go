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

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leasewise/client/internal/models"
)

// run executes the CLI against baseURL with a clean environment.
func run(t *testing.T, baseURL, stdin string, args ...string) (string, string, error) {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "none.yaml"))
	t.Setenv("API_BASE_URL", baseURL)
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")

	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lease.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\n%test\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func analysisServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/analyze":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(body))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

const analyzeBody = `{
	"contract_id": 7,
	"file_name": "server-side.pdf",
	"sla": {"contract_type": "Lease", "monthly_payment": 389, "lease_term_months": 36, "red_flags": ["High disposition fee"]},
	"fairness": {"score": 72.5, "rating": "Fair", "summary": "Mostly standard terms."}
}`

func TestAnalyze(t *testing.T) {
	srv := analysisServer(t, http.StatusOK, analyzeBody)
	pdf := writePDF(t)

	out, _, err := run(t, srv.URL, "", "analyze", pdf)
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}

	for _, want := range []string{
		"Contract #7  lease.pdf",
		"72.5 / 100 (Fair, medium)",
		"$389.00",
		"36 months",
		"! High disposition fee",
		"n/a",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyze_JSON(t *testing.T) {
	srv := analysisServer(t, http.StatusOK, analyzeBody)

	out, _, err := run(t, srv.URL, "", "analyze", "--json", writePDF(t))
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got["file_name"] != "lease.pdf" {
		t.Errorf("file_name = %v", got["file_name"])
	}
}

func TestAnalyze_ServerError(t *testing.T) {
	srv := analysisServer(t, http.StatusOK, `{"error": "Could not extract text from PDF"}`)

	out, _, err := run(t, srv.URL, "", "analyze", writePDF(t))
	if err == nil || err.Error() != "Could not extract text from PDF" {
		t.Fatalf("error = %v", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want empty", out)
	}
}

func TestAnalyze_PromptCancel(t *testing.T) {
	srv := analysisServer(t, http.StatusOK, analyzeBody)

	out, errOut, err := run(t, srv.URL, "\n", "analyze")
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	if out != "" || !strings.Contains(errOut, "No file selected.") {
		t.Errorf("stdout = %q, stderr = %q", out, errOut)
	}
}

func TestAnalyze_NotPDF(t *testing.T) {
	srv := analysisServer(t, http.StatusOK, analyzeBody)
	path := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(path, []byte("hello"), 0o600)

	_, _, err := run(t, srv.URL, "", "analyze", path)
	if err == nil || !strings.Contains(err.Error(), "Only PDF files") {
		t.Errorf("error = %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv := analysisServer(t, http.StatusOK, "{}")

	out, _, err := run(t, srv.URL, "", "health")
	if err != nil || !strings.HasPrefix(out, "online") {
		t.Errorf("health = %q, %v", out, err)
	}

	srv.Close()
	if _, _, err := run(t, srv.URL, "", "health"); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestVIN_Cached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/vin/1HGCM82633A004352" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"make": "HONDA", "model": "Accord", "year": 2003}`))
	}))
	defer srv.Close()

	out, _, err := run(t, srv.URL, "", "vin", "1hgcm82633a004352", "1HGCM82633A004352")
	if err != nil {
		t.Fatalf("vin error = %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
	if strings.Count(out, `"HONDA"`) != 2 {
		t.Errorf("output = %s", out)
	}
}

func TestPrice_RequiresVehicle(t *testing.T) {
	_, _, err := run(t, "http://127.0.0.1:1", "", "price", "--make", "Honda")
	if err == nil || !strings.Contains(err.Error(), "--vin") {
		t.Errorf("error = %v", err)
	}
}

func TestPrice_Body(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"estimated_price": 21000}`))
	}))
	defer srv.Close()

	_, _, err := run(t, srv.URL, "", "price", "--make", "Honda", "--model", "Civic", "--year", "2021", "--mileage", "30000")
	if err != nil {
		t.Fatalf("price error = %v", err)
	}
	if body["make"] != "Honda" || body["year"] != float64(2021) || body["mileage"] != float64(30000) {
		t.Errorf("request body = %v", body)
	}
	if _, ok := body["condition"]; ok {
		t.Error("unset condition should be omitted")
	}
}

func TestNegotiateEmail(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"email": "Dear dealer,"}`))
	}))
	defer srv.Close()

	out, _, err := run(t, srv.URL, "", "negotiate", "email", "7", "--request", "lower APR", "--request", "waive fee")
	if err != nil {
		t.Fatalf("email error = %v", err)
	}
	if strings.TrimSpace(out) != "Dear dealer," {
		t.Errorf("output = %q", out)
	}
	if body["tone"] != "professional" {
		t.Errorf("tone = %v", body["tone"])
	}
	if reqs, _ := body["specific_requests"].([]any); len(reqs) != 2 {
		t.Errorf("specific_requests = %v", body["specific_requests"])
	}
}

func TestInvalidID(t *testing.T) {
	_, _, err := run(t, "http://127.0.0.1:1", "", "contract", "abc")
	if err == nil || !strings.Contains(err.Error(), "invalid contract id") {
		t.Errorf("error = %v", err)
	}
}

func TestPrintAnalysis_Unknowns(t *testing.T) {
	var buf bytes.Buffer
	a := models.DecodeAt(models.Payload{}, time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC))

	if err := printAnalysis(&buf, a); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "0 / 100 (Unknown, low)") {
		t.Errorf("output = %s", out)
	}
	if strings.Contains(out, "Red flags") || strings.Contains(out, "Negotiation points") {
		t.Error("empty sections should be omitted")
	}
	if strings.Count(out, "n/a") != 14 {
		t.Errorf("n/a count = %d, want 14", strings.Count(out, "n/a"))
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir in Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
