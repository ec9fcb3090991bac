//go:build !js && !wasm
// +build !js,!wasm

package generate

import (
	"context"
	"fmt"
)

// callGoogle is a stub for non-WASM builds.
func (s *Service) callGoogle(_ context.Context, _, _ string) (string, error) {
	return "", fmt.Errorf("generate: Google API calls require WASM environment")
}

// jsFetch is a stub for non-WASM builds.
func (s *Service) jsFetch(_, _ string) (string, error) {
	return "", fmt.Errorf("generate: fetch requires WASM environment")
}
