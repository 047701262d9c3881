package main

import (
	"testing"
	"time"

	natspkg "github.com/brojonat/omniscan/service/nats"
)

func TestJQFilterMatching(t *testing.T) {
	token := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	memo := "invoice-42"
	height := int64(48650211)

	event := &natspkg.TransferEvent{
		Network:     "SOL",
		TxHash:      "sig1",
		FromAddress: "sender",
		ToAddress:   "recipient",
		Value:       "60.5",
		Symbol:      "USDC",
		Token:       &token,
		Memo:        &memo,
		BlockHeight: &height,
		PublishedAt: time.Now().UTC(),
	}

	tests := []struct {
		name      string
		jqFilters []string
		want      bool
	}{
		{
			name:      "no filters matches everything",
			jqFilters: nil,
			want:      true,
		},
		{
			name:      "symbol match",
			jqFilters: []string{`.symbol == "USDC"`},
			want:      true,
		},
		{
			name:      "symbol mismatch",
			jqFilters: []string{`.symbol == "SOL"`},
			want:      false,
		},
		{
			name:      "all filters must match",
			jqFilters: []string{`.symbol == "USDC"`, `.to_address == "nobody"`},
			want:      false,
		},
		{
			name:      "memo substring",
			jqFilters: []string{`.memo | contains("invoice")`},
			want:      true,
		},
		{
			name:      "numeric comparison on height",
			jqFilters: []string{`.block_height > 48000000`},
			want:      true,
		},
		{
			name:      "null field is falsy",
			jqFilters: []string{`.tx_fee`},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters, err := compileJQFilters(tt.jqFilters)
			if err != nil {
				t.Fatalf("failed to compile filters: %v", err)
			}

			got := matchesJQFilters(event, filters)
			if got != tt.want {
				t.Errorf("matchesJQFilters() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileJQFiltersRejectsBadExpression(t *testing.T) {
	_, err := compileJQFilters([]string{`.symbol ==`})
	if err == nil {
		t.Fatal("expected parse error for incomplete expression")
	}
}
