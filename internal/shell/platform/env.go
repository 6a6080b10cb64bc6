// Package platform assembles the process environment handed to compose
// commands.
package platform

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Linux is the platform name that receives user and group identifiers.
const Linux = "linux"

// Environment keys injected on Linux so containers run as the host user.
const (
	EnvUserID  = "USERID"
	EnvGroupID = "GROUPID"
)

// EnvironProvider returns the ambient process environment as KEY=value pairs.
type EnvironProvider func() []string

// IdentityProvider reports the host platform and the current user's numeric
// identifiers. A false second return value means the value is unavailable.
type IdentityProvider interface {
	Platform() string
	UserID() (int, bool)
	GroupID() (int, bool)
}

// =============================================================================
// Builder
// =============================================================================

// Builder produces the environment for every compose invocation.
type Builder struct {
	environ  EnvironProvider
	identity IdentityProvider
}

// NewBuilder creates a Builder. environ is required; a nil identity
// provider only means the platform keys are never injected.
func NewBuilder(environ EnvironProvider, identity IdentityProvider) *Builder {
	if environ == nil {
		panic("platform: NewBuilder requires an environ provider")
	}
	return &Builder{environ: environ, identity: identity}
}

// NewHostBuilder creates a Builder over the real process environment.
func NewHostBuilder() *Builder {
	return NewBuilder(os.Environ, HostIdentity{})
}

// Build returns the ambient environment plus, on Linux, USERID and GROUPID.
func (b *Builder) Build() map[string]string {
	env := make(map[string]string)
	for _, kv := range b.environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}

	if b.identity == nil || b.identity.Platform() != Linux {
		return env
	}
	uid, uok := b.identity.UserID()
	gid, gok := b.identity.GroupID()
	if uok && gok {
		env[EnvUserID] = strconv.Itoa(uid)
		env[EnvGroupID] = strconv.Itoa(gid)
	}
	return env
}

// =============================================================================
// Host Identity
// =============================================================================

// HostIdentity reads identity from the running process.
type HostIdentity struct{}

// Platform returns the operating system name.
func (HostIdentity) Platform() string { return runtime.GOOS }

// UserID returns the effective user ID; unavailable on Windows.
func (HostIdentity) UserID() (int, bool) {
	id := os.Getuid()
	return id, id >= 0
}

// GroupID returns the effective group ID; unavailable on Windows.
func (HostIdentity) GroupID() (int, bool) {
	id := os.Getgid()
	return id, id >= 0
}
