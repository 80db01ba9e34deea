package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/identity"
)

type portalClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func addPortalFlags(cmd *cobra.Command, pc *portalClient) {
	cmd.Flags().StringVar(&pc.baseURL, "portal", envOr("LOANDROP_PORTAL_URL", "http://localhost:8080"), "Portal base URL")
	cmd.Flags().StringVar(&pc.token, "token", os.Getenv("LOANDROP_TOKEN"), "Bearer token (see `loandrop token`)")
	pc.http = &http.Client{}
}

func (pc *portalClient) request(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	if pc.token == "" {
		return nil, fmt.Errorf("no token: pass --token or set LOANDROP_TOKEN")
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(pc.baseURL, "/")+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+pc.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := pc.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(raw)))
	}
	return resp, nil
}

func (pc *portalClient) getJSON(ctx context.Context, path string, out any) error {
	resp, err := pc.request(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func newTokenCmd() *cobra.Command {
	var (
		id     identity.Identity
		secret string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a portal bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("no secret: pass --secret or set LOANDROP_JWT_SECRET")
			}
			token, err := identity.Mint([]byte(secret), id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&id.UserID, "user", "dev-user", "User id (sub claim)")
	cmd.Flags().StringVar(&id.OrgID, "org-id", "dev-org", "Organization id")
	cmd.Flags().StringVar(&id.OrgSlug, "org", "acme", "Organization slug")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("LOANDROP_JWT_SECRET"), "HMAC secret shared with the portal")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var docsvc, org string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a loan application on the reference document service",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := facade.NewClient(docsvc, docsvc, 10*time.Second)
			app, err := client.CreateApplication(cmd.Context(), org)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&docsvc, "docsvc", envOr("DOCUMENT_SERVICE_URL", "http://localhost:8090"), "Document service base URL")
	cmd.Flags().StringVar(&org, "org", "acme", "Organization slug that owns the application")
	return cmd
}

func newUploadCmd() *cobra.Command {
	var (
		pc         portalClient
		documentID string
	)
	cmd := &cobra.Command{
		Use:   "upload <application-id> <file>",
		Short: "Upload a file through the portal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			pr, pw := io.Pipe()
			mw := multipart.NewWriter(pw)
			go func() {
				err := writeUploadForm(mw, documentID, filepath.Base(args[1]), f)
				pw.CloseWithError(err)
			}()

			path := "/api/applications/" + url.PathEscape(args[0]) + "/documents"
			resp, err := pc.request(cmd.Context(), http.MethodPost, path, pr, mw.FormDataContentType())
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			_, err = io.Copy(cmd.OutOrStdout(), resp.Body)
			return err
		},
	}
	addPortalFlags(cmd, &pc)
	cmd.Flags().StringVar(&documentID, "document-id", "", "Attach to an existing document instead of creating one")
	return cmd
}

func writeUploadForm(mw *multipart.Writer, documentID, filename string, r io.Reader) error {
	if documentID != "" {
		if err := mw.WriteField("documentId", documentID); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

func newWatchCmd() *cobra.Command {
	var pc portalClient
	cmd := &cobra.Command{
		Use:   "watch <document-id>",
		Short: "Stream a document's processing status until it settles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/documents/" + url.PathEscape(args[0]) + "/events"
			resp, err := pc.request(cmd.Context(), http.MethodGet, path, nil, "")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			return printEvents(resp.Body, cmd.OutOrStdout())
		},
	}
	addPortalFlags(cmd, &pc)
	return cmd
}

// printEvents writes one "event: data" line per server-sent event.
func printEvents(r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	event := "message"
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			fmt.Fprintf(w, "%s %s\n", event, strings.TrimPrefix(line, "data: "))
		case line == "":
			event = "message"
		}
	}
	return sc.Err()
}

type checklistRow struct {
	DisplayName string `json:"displayName"`
	SubLabel    string `json:"subLabel"`
	Filename    string `json:"filename"`
	Status      string `json:"status"`
}

type checklistSection struct {
	Rows    []checklistRow `json:"rows"`
	Summary struct {
		Completed int `json:"completed"`
		Total     int `json:"total"`
	} `json:"summary"`
}

func newChecklistCmd() *cobra.Command {
	var (
		pc     portalClient
		sortBy string
		desc   bool
	)
	cmd := &cobra.Command{
		Use:   "checklist <application-id>",
		Short: "Print an application's categorized document checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if sortBy != "" {
				q.Set("sort", sortBy)
				if desc {
					q.Set("dir", "desc")
				}
			}
			path := "/api/applications/" + url.PathEscape(args[0]) + "/checklist"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			var out struct {
				Owner    checklistSection `json:"owner"`
				Business checklistSection `json:"business"`
				Other    checklistSection `json:"other"`
			}
			if err := pc.getJSON(cmd.Context(), path, &out); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, sec := range []struct {
				name string
				checklistSection
			}{{"Owner", out.Owner}, {"Business", out.Business}, {"Other", out.Other}} {
				fmt.Fprintf(tw, "%s (%d/%d)\t\t\t\n", sec.name, sec.Summary.Completed, sec.Summary.Total)
				for _, row := range sec.Rows {
					fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", row.DisplayName, row.SubLabel, row.Filename, row.Status)
				}
			}
			return tw.Flush()
		},
	}
	addPortalFlags(cmd, &pc)
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort column: document, subdocument, file or status")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	return cmd
}

func newTotalsCmd() *cobra.Command {
	var pc portalClient
	cmd := &cobra.Command{
		Use:   "totals <financial-statement.json>",
		Short: "Validate a personal financial statement and print its totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			resp, err := pc.request(cmd.Context(), http.MethodPost, "/api/review/financial-statement", f, "application/json")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			var out struct {
				Formatted map[string]string `json:"formatted"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			for _, k := range []string{"totalIncome", "totalExpense", "totalAssets", "totalLiabilities", "netWorth", "liabilitiesAndNetWorth"} {
				fmt.Fprintf(tw, "%s\t%s\t\n", k, out.Formatted[k])
			}
			return tw.Flush()
		},
	}
	addPortalFlags(cmd, &pc)
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
