package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/regionscope/models"
)

// apiClient talks to a running regionscope HTTP server.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func main() {
	apiURL := os.Getenv("REGIONSCOPE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3000"
	}

	// A batch of five sessions can take several minutes.
	api := &apiClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		apiKey:  os.Getenv("REGIONSCOPE_API_KEY"),
		http:    &http.Client{Timeout: 10 * time.Minute},
	}

	s := server.NewMCPServer(
		"regionscope",
		"2.0.0",
		server.WithToolCapabilities(false),
	)

	lookupTool := mcp.NewTool("lookup_region",
		mcp.WithDescription("Look up the region, language and public profile counters for one profile handle. Drives a headless browser against the lookup site; results are cached for an hour."),
		mcp.WithString("username",
			mcp.Required(),
			mcp.Description("Profile handle, with or without a leading @"),
		),
	)
	s.AddTool(lookupTool, handleLookup(api))

	batchTool := mcp.NewTool("batch_lookup_region",
		mcp.WithDescription("Look up several profile handles one after another (at most 5). Results keep input order; each entry succeeds or fails on its own."),
		mcp.WithArray("usernames",
			mcp.Required(),
			mcp.Description("Profile handles to look up"),
		),
	)
	s.AddTool(batchTool, handleBatch(api))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// do sends a request and returns the response body regardless of status;
// the API always answers with JSON.
func (a *apiClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleLookup(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		username, err := request.RequireString("username")
		if err != nil {
			return mcp.NewToolResultError("username is required"), nil
		}

		respBody, err := api.do(ctx, http.MethodGet, "/api/user-region?username="+url.QueryEscape(username), nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var result models.LookupResult
		if err := json.Unmarshal(respBody, &result); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !result.Success {
			return mcp.NewToolResultError(failureText(result)), nil
		}
		return mcp.NewToolResultText(formatRecord(result)), nil
	}
}

func handleBatch(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		usernames, err := request.RequireStringSlice("usernames")
		if err != nil {
			return mcp.NewToolResultError("usernames is required and must be an array of strings"), nil
		}

		respBody, err := api.do(ctx, http.MethodPost, "/api/batch-region", models.BatchRequest{Usernames: usernames})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var batch models.BatchResponse
		if err := json.Unmarshal(respBody, &batch); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !batch.Success {
			var e models.ErrorResponse
			_ = json.Unmarshal(respBody, &e)
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", e.Code, e.Error)), nil
		}

		var sb strings.Builder
		for i, r := range batch.Results {
			if r.Success {
				fmt.Fprintf(&sb, "--- [%d] @%s ---\n%s\n", i+1, r.Identifier, formatRecord(r))
			} else {
				fmt.Fprintf(&sb, "--- [%d] @%s FAILED: %s ---\n\n", i+1, r.Identifier, failureText(r))
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func failureText(r models.LookupResult) string {
	if r.Code == "" {
		return r.Error
	}
	return fmt.Sprintf("[%s] %s", r.Code, r.Error)
}

// formatRecord renders a successful lookup as labelled lines.
func formatRecord(r models.LookupResult) string {
	if r.Data == nil {
		return ""
	}
	d := r.Data
	country := d.Country
	if d.CountryCode != "" {
		country = fmt.Sprintf("%s (%s)", d.Country, d.CountryCode)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Nickname: %s\n", d.Nickname)
	fmt.Fprintf(&sb, "Country: %s\n", country)
	fmt.Fprintf(&sb, "Region: %s\n", d.Region)
	fmt.Fprintf(&sb, "Language: %s\n", d.Language)
	fmt.Fprintf(&sb, "Followers: %s\n", d.Followers)
	fmt.Fprintf(&sb, "Following: %s\n", d.Following)
	fmt.Fprintf(&sb, "Likes: %s\n", d.Likes)
	fmt.Fprintf(&sb, "User ID: %s\n", d.UserID)
	return sb.String()
}
