package failure

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageUsesValidationReason(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("plan: %w", Invalid("departure", "KJ", "Enter valid ICAO codes"))
	require.True(t, IsValidation(err))
	require.Equal(t, "Enter valid ICAO codes", Message(err, "unused"))
}

func TestMessageFallsBackForFetchFailures(t *testing.T) {
	t.Parallel()

	nerr := fmt.Errorf("load: %w", &NetworkError{Source: "data/members.json", Status: http.StatusNotFound})
	require.Equal(t, "Error loading member directory.", Message(nerr, "Error loading member directory."))

	perr := &ParseError{Source: "data/members.json", Err: errors.New("unexpected EOF")}
	require.Equal(t, "Failed to load.", Message(perr, "Failed to load."))
	require.False(t, IsValidation(perr))
}

func TestNetworkErrorDetails(t *testing.T) {
	t.Parallel()

	err := &NetworkError{Source: "x", Status: http.StatusNotFound}
	require.True(t, err.NotFound())
	require.Contains(t, err.Error(), "404")

	cause := errors.New("connection refused")
	err = &NetworkError{Source: "x", Err: cause}
	require.ErrorIs(t, err, cause)
	require.False(t, err.NotFound())
}
