package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"balance", "balance"},
		{"chainId", "chain_id"},
		{"tokenAddress", "token_address"},
		{"blockTimestamp", "block_timestamp"},
		{"tokenURI", "token_uri"},
		{"ownerID", "owner_id"},
		{"URL", "url"},
		{"erc721ID", "erc721id"},
		{"already_snake", "already_snake"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SnakeCase(tt.in))
		})
	}
}
