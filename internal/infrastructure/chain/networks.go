package chain

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bernice-stories/bernice/internal/apperrors"
)

// ErrContractUnavailable is the message reported for chains without a deployment.
const ErrContractUnavailable = "contract not available on this chain"

// Network is one entry of the deployment table. Contract is empty when the
// chain is known but Bernice is not deployed there.
type Network struct {
	ChainID  uint64 `json:"chainId"`
	Name     string `json:"name"`
	Contract string `json:"contract,omitempty"`
}

var networks = map[uint64]Network{
	1:        {ChainID: 1, Name: "Ethereum Mainnet"},
	10:       {ChainID: 10, Name: "Optimism"},
	8453:     {ChainID: 8453, Name: "Base"},
	31337:    {ChainID: 31337, Name: "Local", Contract: "0x5FbDB2315678afecb367f032d93F642f64180aa4"},
	42161:    {ChainID: 42161, Name: "Arbitrum One"},
	84532:    {ChainID: 84532, Name: "Base Sepolia", Contract: "0x1502b55CB677ae1c514cd87aA103a3A33aD82876"},
	11155111: {ChainID: 11155111, Name: "Sepolia"},
}

// LookupNetwork returns the table entry for chainID.
func LookupNetwork(chainID uint64) (Network, bool) {
	n, ok := networks[chainID]
	return n, ok
}

// Networks returns the deployment table ordered by chain id.
func Networks() []Network {
	out := make([]Network, 0, len(networks))
	for _, n := range networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// ResolveContract picks the contract address for chainID. A non-empty
// override wins over the table. A chain with no deployment is reported as
// unavailable rather than failed.
func ResolveContract(chainID uint64, override string) (common.Address, error) {
	if override != "" {
		if !common.IsHexAddress(override) {
			return common.Address{}, apperrors.Validation("contract address override is not a hex address")
		}
		return common.HexToAddress(override), nil
	}

	n, ok := networks[chainID]
	if !ok || n.Contract == "" || !common.IsHexAddress(n.Contract) {
		return common.Address{}, apperrors.Unavailable(ErrContractUnavailable, nil)
	}
	return common.HexToAddress(n.Contract), nil
}
