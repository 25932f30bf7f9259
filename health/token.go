// Package health serves the restart token that reload pollers compare.
//
// The token is opaque: it identifies one incarnation of the server process
// and must stay the same for as long as that process is alive.
package health

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	version "github.com/hashicorp/go-version"
)

// These variables can be overridden at build time using -ldflags.
var (
	// Version reports the application version.
	Version = "dev"
	// Commit reports the git commit hash used for the build.
	Commit = "none"
	// BuildTime reports when the binary was built.
	BuildTime = "unknown"
)

// BuildInfo describes the version metadata of the running binary.
type BuildInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"buildTime" yaml:"buildTime"`
}

// GetBuildInfo returns the current build metadata.
func GetBuildInfo() BuildInfo {
	return BuildInfo{Version: Version, Commit: Commit, BuildTime: BuildTime}
}

// TokenSource yields the token served by the health check endpoint.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

var (
	nonceOnce sync.Once
	nonce     string
)

// Token returns the process-wide random token. It is generated on first use
// and never changes afterwards.
func Token() string {
	nonceOnce.Do(func() {
		nonce = strconv.FormatUint(randomUint64(), 10)
	})
	return nonce
}

func randomUint64() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("health: read random token: %v", err))
	}
	return binary.LittleEndian.Uint64(b[:])
}

// NonceSource serves the process-wide random token.
type NonceSource struct{}

func (NonceSource) Token() string { return Token() }

// ErrInvalidVersion is returned by NewBuildSource for unparsable versions.
var ErrInvalidVersion = errors.New("health: invalid build version")

// BuildSource serves "<version>+<commit>.<nonce>". The version is normalised
// so "v1.2" and "1.2.0" produce the same prefix; the nonce keeps the token
// distinct across restarts of the same build.
type BuildSource struct {
	token string
}

// NewBuildSource builds a token source from build metadata. The literal
// version "dev" is accepted as-is.
func NewBuildSource(info BuildInfo) (*BuildSource, error) {
	v := strings.TrimSpace(info.Version)
	if v == "" {
		v = "dev"
	}
	if v != "dev" {
		parsed, err := version.NewVersion(v)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidVersion, info.Version, err)
		}
		v = parsed.String()
	}

	commit := strings.TrimSpace(info.Commit)
	if commit == "" {
		commit = "none"
	}
	return &BuildSource{token: v + "+" + commit + "." + Token()}, nil
}

func (s *BuildSource) Token() string { return s.token }
