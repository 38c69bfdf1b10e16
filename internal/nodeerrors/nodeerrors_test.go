package nodeerrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/nodeerrors"
)

func TestWrapPreservesErrorsIsAgainstTheSentinel(t *testing.T) {
	wrapped := nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrNonceMismatch)
	require.True(t, errors.Is(wrapped, nodeerrors.ErrNonceMismatch))
}

func TestWrapNilReturnsNil(t *testing.T) {
	require.Nil(t, nodeerrors.Wrap(nodeerrors.KindValidation, nil))
}

func TestKindOfRecoversTheTaggedKind(t *testing.T) {
	wrapped := nodeerrors.Wrap(nodeerrors.KindConsensus, nodeerrors.ErrBadTxRoot)
	require.Equal(t, nodeerrors.KindConsensus, nodeerrors.KindOf(wrapped))
}

func TestKindOfDefaultsToExecutionForUntaggedErrors(t *testing.T) {
	plain := errors.New("some other error")
	require.Equal(t, nodeerrors.KindExecution, nodeerrors.KindOf(plain))
}

func TestErrorMessagePassesThroughToTheWrappedSentinel(t *testing.T) {
	wrapped := nodeerrors.Wrap(nodeerrors.KindStorage, nodeerrors.ErrStoreCorrupt)
	require.Equal(t, nodeerrors.ErrStoreCorrupt.Error(), wrapped.Error())
}
