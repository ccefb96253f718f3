//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertErrorCode checks that the response body contains the expected error code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	DecodeJSON(t, resp, &errResp)
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, errResp.Code, errResp.Message)
	}
}

// VoteTarget returns the target stored in the voter's vote row, failing the
// test when the row is missing.
func VoteTarget(t *testing.T, env *TestEnv, voterID uuid.UUID) *uuid.UUID {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var target *uuid.UUID
	err := env.Pool.QueryRow(ctx, "SELECT target_id FROM votes WHERE voter_id = $1", voterID).Scan(&target)
	if err != nil {
		t.Fatalf("VoteTarget: query: %v", err)
	}
	return target
}

// CountRows returns the number of rows in table matching where (may be empty).
func CountRows(t *testing.T, env *TestEnv, table, where string, args ...interface{}) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var count int
	if err := env.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		t.Fatalf("CountRows %s: %v", table, err)
	}
	return count
}
