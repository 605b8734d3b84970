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
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) negotiateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "negotiate",
		Short: "Negotiate contract terms with the assistant",
	}
	cmd.AddCommand(
		a.negotiateStartCmd(),
		a.negotiateChatCmd(),
		a.negotiateHistoryCmd(),
		a.negotiateEmailCmd(),
	)
	return cmd
}

func (a *app) negotiateStartCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "start <contract-id>",
		Short: "Open a negotiation thread for an analyzed contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("contract id", args[0])
			if err != nil {
				return err
			}
			session, err := a.client.StartNegotiation(cmd.Context(), id, title)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Thread #%d for contract #%d\n\n", session.ThreadID, session.ContractID)
			if session.WelcomeMessage != "" {
				fmt.Fprintf(a.out, "%s\n\n", session.WelcomeMessage)
			}
			for _, p := range session.Points {
				fmt.Fprintf(a.out, "- %s\n", p.Point)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "thread title")
	return cmd
}

func (a *app) negotiateChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <thread-id> <message>...",
		Short: "Send a message to a negotiation thread",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("thread id", args[0])
			if err != nil {
				return err
			}
			reply, err := a.client.SendNegotiationMessage(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, reply.Response)
			return nil
		},
	}
}

func (a *app) negotiateHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <thread-id>",
		Short: "Show every message in a negotiation thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("thread id", args[0])
			if err != nil {
				return err
			}
			messages, err := a.client.NegotiationHistory(cmd.Context(), id)
			if err != nil {
				return err
			}
			for _, m := range messages {
				fmt.Fprintf(a.out, "[%s] %s\n%s\n\n", m.Role, m.CreatedAt, m.Content)
			}
			return nil
		},
	}
}

func (a *app) negotiateEmailCmd() *cobra.Command {
	var (
		tone     string
		requests []string
	)

	cmd := &cobra.Command{
		Use:   "email <contract-id>",
		Short: "Draft a negotiation email for a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("contract id", args[0])
			if err != nil {
				return err
			}
			email, err := a.client.DraftNegotiationEmail(cmd.Context(), id, tone, requests)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, email)
			return nil
		},
	}
	cmd.Flags().StringVar(&tone, "tone", "professional", "tone of the email")
	cmd.Flags().StringArrayVar(&requests, "request", nil, "specific request to include (repeatable)")
	return cmd
}
