package keyring

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorMatchesByKind(t *testing.T) {
	err := newError(KindNotFound, "%s: %s", AccountNotFoundError, "abc")
	wrapped := fmt.Errorf("lookup: %w", err)

	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, ErrInvalidArgument)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, "account not found: abc", err.Error())
}

func TestSensitiveErrorHidesCause(t *testing.T) {
	err := &Error{Kind: KindSensitiveFailure, Message: InvalidPrivateKeyError, Err: errors.New("key 0xabc is out of range")}
	assert.Equal(t, "invalid private key", err.Error())

	plain := wrapError(KindInternal, errors.New("timeout"), "cannot read account code")
	assert.Equal(t, "cannot read account code: timeout", plain.Error())
}

func TestErrorGRPCStatus(t *testing.T) {
	cases := map[ErrorKind]codes.Code{
		KindNotFound:                codes.NotFound,
		KindInvalidConfig:           codes.InvalidArgument,
		KindScopeMismatch:           codes.InvalidArgument,
		KindDuplicateAddress:        codes.AlreadyExists,
		KindUnsupportedMethod:       codes.Unimplemented,
		KindAccountChainUnsupported: codes.FailedPrecondition,
		KindMissingConfig:           codes.FailedPrecondition,
		KindSensitiveFailure:        codes.Internal,
	}
	for kind, code := range cases {
		st, ok := status.FromError(&Error{Kind: kind})
		assert.True(t, ok)
		assert.Equal(t, code, st.Code(), kind)
		assert.Equal(t, string(kind), st.Message())
	}
}
