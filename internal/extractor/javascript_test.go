package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemap/repomap-mcp/pkg/types"
)

func TestJavaScriptExtractClassAndFunctions(t *testing.T) {
	src := []byte(`/** Talks to the payment gateway. */
export class PaymentClient {
  /** Charge the given amount in cents. */
  charge(amountCents) {
    return true;
  }
}

export function formatAmount(cents) {
  return cents / 100;
}
`)

	symbols := newJavaScript().Extract(context.Background(), "pay.js", src)
	byName := bySignatureKey(symbols)
	require.Len(t, symbols, 3)

	cls, ok := byName["PaymentClient"]
	require.True(t, ok)
	assert.Equal(t, types.KindClass, cls.Kind)
	assert.Equal(t, "Talks to the payment gateway.", cls.Docstring)

	charge, ok := byName["PaymentClient.charge"]
	require.True(t, ok)
	assert.Equal(t, types.KindMethod, charge.Kind)
	assert.Equal(t, "PaymentClient", charge.Parent)
	assert.Equal(t, "charge(amountCents)", charge.Signature)
	assert.Equal(t, "Charge the given amount in cents.", charge.Docstring)

	fn, ok := byName["formatAmount"]
	require.True(t, ok)
	assert.Equal(t, types.KindFunction, fn.Kind)
	assert.Equal(t, "formatAmount(cents)", fn.Signature)
}

func TestJavaScriptTopLevelFunction(t *testing.T) {
	src := []byte("function add(a, b) {\n  return a + b;\n}\n")

	symbols := newJavaScript().Extract(context.Background(), "math.mjs", src)
	require.Len(t, symbols, 1)
	assert.Equal(t, "add", symbols[0].Name)
	assert.Equal(t, 1, symbols[0].LineStart)
	assert.Equal(t, 3, symbols[0].LineEnd)
}
