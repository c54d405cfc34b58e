// Copyright 2025 Blink Labs Software
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

package host

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the caller can't act as the required
// identity
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the address of an account that can call contracts
type Identity string

// Authenticator checks that the caller of an invocation controls an identity
type Authenticator interface {
	RequireAuth(ctx context.Context, id Identity) error
}

type callerContextKey struct{}

// WithCaller returns a context carrying the authenticated caller identity
func WithCaller(ctx context.Context, caller Identity) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext returns the caller identity carried by ctx
func CallerFromContext(ctx context.Context) (Identity, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(Identity)
	if !ok || caller == "" {
		return "", false
	}
	return caller, true
}

// CallerAuthenticator authorizes an identity when it matches the caller
// carried in the context
type CallerAuthenticator struct{}

func (CallerAuthenticator) RequireAuth(ctx context.Context, id Identity) error {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: no caller identity", ErrUnauthorized)
	}
	if caller != id {
		return fmt.Errorf(
			"%w: caller %s cannot act as %s",
			ErrUnauthorized,
			caller,
			id,
		)
	}
	return nil
}
