// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the agent",
		Long:  "Send a message to a running aurora service. Starts an interactive session if no message is provided; the session id carries across messages until you quit.",
		RunE:  runChat,
	}

	cmd.Flags().StringP("addr", "a", "127.0.0.1:8790", "address of the running service (host:port)")
	cmd.Flags().StringP("session", "s", "", "resume existing session by ID")

	return cmd
}

type chatRequestBody struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponseBody struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Usage     struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func runChat(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	sessionID, _ := cmd.Flags().GetString("session")
	client := newServiceClient(addr)

	// One-shot mode.
	if len(args) > 0 {
		reply, _, err := sendChat(client, strings.Join(args, " "), sessionID)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)
		return err
	}

	// Interactive REPL.
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Aurora 3D Agent. Пустая строка или /quit для выхода.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "/quit" {
			break
		}

		reply, newSession, err := sendChat(client, line, sessionID)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		sessionID = newSession
		fmt.Fprintf(out, "%s\n", reply)
	}

	return scanner.Err()
}

func sendChat(client *serviceClient, message, sessionID string) (reply, newSessionID string, err error) {
	var resp chatResponseBody
	err = client.postJSON("/api/v1/chat", chatRequestBody{
		Message:   message,
		SessionID: sessionID,
	}, &resp)
	if err != nil {
		return "", "", err
	}
	return resp.Reply, resp.SessionID, nil
}
