package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBuyHat(t *testing.T) {
	data, err := EncodeBuyHat(12345)
	require.NoError(t, err)

	method, ok := parsedHatABI.Methods[MethodBuyHat]
	require.True(t, ok)

	// 4-byte selector followed by one 32-byte word
	require.Len(t, data, 4+32)
	assert.Equal(t, method.ID, data[:4])

	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, args, 1)
	assert.Equal(t, 0, big.NewInt(12345).Cmp(args[0].(*big.Int)))
}

func TestParsedABI_Methods(t *testing.T) {
	parsed := ParsedABI()
	for _, name := range []string{MethodBalanceOf, MethodTotalSupply, MethodMint, MethodBuyHat} {
		if _, ok := parsed.Methods[name]; !ok {
			t.Errorf("method %s missing from ABI", name)
		}
	}

	if !parsed.Methods[MethodBuyHat].IsPayable() {
		t.Error("buyHat should be payable")
	}
	if !parsed.Methods[MethodTotalSupply].IsConstant() {
		t.Error("totalSupply should be a view method")
	}
}
