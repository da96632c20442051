package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"streamline/internal/api"
	"streamline/internal/services"
)

func main() {
	err := newRootCommand().ExecuteContext(context.Background())
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "streamline:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode is 2 for requests the daemon (or local parsing) rejected as
// invalid and 1 for every other failure.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return 2
	}
	if errors.Is(err, services.ErrInvalidRequest) {
		return 2
	}
	return 1
}
