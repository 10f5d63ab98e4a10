package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ChainID identifies a supported network by its native asset code.
type ChainID string

const (
	ChainETH ChainID = "ETH"
	ChainSOL ChainID = "SOL"
	ChainAPT ChainID = "APT"
	ChainTRX ChainID = "TRX"
	ChainSUI ChainID = "SUI"
)

// ChainName is the human-readable network name.
type ChainName string

const (
	ChainNameEthereum ChainName = "Ethereum"
	ChainNameSolana   ChainName = "Solana"
	ChainNameAptos    ChainName = "Aptos"
	ChainNameTron     ChainName = "Tron"
	ChainNameSui      ChainName = "Sui"
)

// ChainInfo describes the native asset of a network.
type ChainInfo struct {
	ID       ChainID
	Name     ChainName
	Symbol   string
	Decimals int32
}

// ChainIDToInfo maps every supported ChainID to its native asset description.
var ChainIDToInfo = map[ChainID]ChainInfo{
	ChainETH: {ID: ChainETH, Name: ChainNameEthereum, Symbol: "ETH", Decimals: 18},
	ChainSOL: {ID: ChainSOL, Name: ChainNameSolana, Symbol: "SOL", Decimals: 9},
	ChainAPT: {ID: ChainAPT, Name: ChainNameAptos, Symbol: "APT", Decimals: 8},
	ChainTRX: {ID: ChainTRX, Name: ChainNameTron, Symbol: "TRX", Decimals: 6},
	ChainSUI: {ID: ChainSUI, Name: ChainNameSui, Symbol: "SUI", Decimals: 9},
}

var chainAliases = map[string]ChainID{
	"eth":      ChainETH,
	"ethereum": ChainETH,
	"sol":      ChainSOL,
	"solana":   ChainSOL,
	"apt":      ChainAPT,
	"aptos":    ChainAPT,
	"trx":      ChainTRX,
	"tron":     ChainTRX,
	"sui":      ChainSUI,
}

// ParseChainID resolves a chain code or network alias, case-insensitively.
func ParseChainID(s string) (ChainID, error) {
	id, ok := chainAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown chain %q", s)
	}
	return id, nil
}

// Info returns the native asset description of the chain.
func (c ChainID) Info() (ChainInfo, bool) {
	info, ok := ChainIDToInfo[c]
	return info, ok
}

// Symbol returns the native asset symbol, falling back to the chain code.
func (c ChainID) Symbol() string {
	if info, ok := ChainIDToInfo[c]; ok {
		return info.Symbol
	}
	return string(c)
}

// SupportedChains returns all known chains in a stable order.
func SupportedChains() []ChainID {
	ids := make([]ChainID, 0, len(ChainIDToInfo))
	for id := range ChainIDToInfo {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
