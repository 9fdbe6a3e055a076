package releases

import (
	"math"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"mymediarelease-backend/pkg/clients/evm"
	"mymediarelease-backend/pkg/models"
)

type StakeholderShare struct {
	Address string
	Share   uint64
}

// ContractParams are the sale terms of a release in display units.
type ContractParams struct {
	Symbol string
	// SalePrice is a decimal amount of ether, empty means free.
	SalePrice string
	Quantity  uint64
	// RoyaltyPercentage is a decimal percentage, "5" or "2.5".
	RoyaltyPercentage string
	Stakeholders      []StakeholderShare
}

// deployArgs converts params into chain units. sharesTotal of zero leaves the
// share sum to the contract.
func deployArgs(name string, metadataURI string, params ContractParams, sharesTotal uint64) (evm.DeployArgs, error) {
	if len(params.Stakeholders) == 0 {
		return evm.DeployArgs{}, models.NewInvalidInput("stakeholders", "at least one stakeholder is required")
	}

	args := evm.DeployArgs{
		Payees:      make([]common.Address, 0, len(params.Stakeholders)),
		Shares:      make([]*big.Int, 0, len(params.Stakeholders)),
		Name:        name,
		Symbol:      params.Symbol,
		Quantity:    new(big.Int).SetUint64(params.Quantity),
		MetadataURI: metadataURI,
	}

	seen := make(map[common.Address]struct{}, len(params.Stakeholders))
	// total never exceeds sharesTotal when the sum is enforced
	var total uint64
	for i, s := range params.Stakeholders {
		field := "stakeholders." + strconv.Itoa(i)
		if !common.IsHexAddress(s.Address) {
			return evm.DeployArgs{}, models.NewInvalidInput(field+".address", "is not a valid address")
		}

		addr := common.HexToAddress(s.Address)
		if _, dup := seen[addr]; dup {
			return evm.DeployArgs{}, models.NewInvalidInput(field+".address", "is listed twice")
		}
		seen[addr] = struct{}{}

		if s.Share == 0 {
			return evm.DeployArgs{}, models.NewInvalidInput(field+".share", "must be positive")
		}
		if sharesTotal > 0 && s.Share > sharesTotal-total {
			return evm.DeployArgs{}, models.NewInvalidInput("stakeholders", "shares must sum to "+strconv.FormatUint(sharesTotal, 10))
		}
		if total > math.MaxUint64-s.Share {
			return evm.DeployArgs{}, models.NewInvalidInput(field+".share", "is too large")
		}

		args.Payees = append(args.Payees, addr)
		args.Shares = append(args.Shares, new(big.Int).SetUint64(s.Share))
		total += s.Share
	}

	if sharesTotal > 0 && total != sharesTotal {
		return evm.DeployArgs{}, models.NewInvalidInput("stakeholders", "shares must sum to "+strconv.FormatUint(sharesTotal, 10))
	}

	price, err := evm.ParseUnits(params.SalePrice, evm.EtherDecimals)
	if err != nil {
		return evm.DeployArgs{}, models.NewInvalidInput("sale_price", err.Error())
	}
	args.SalePriceWei = price

	royalty, err := evm.ParseUnits(params.RoyaltyPercentage, evm.BasisPointDecimals)
	if err != nil {
		return evm.DeployArgs{}, models.NewInvalidInput("royalty", err.Error())
	}
	if royalty.Cmp(big.NewInt(100*100)) > 0 {
		return evm.DeployArgs{}, models.NewInvalidInput("royalty", "must not exceed 100%")
	}
	args.RoyaltyBasisPoints = royalty

	return args, nil
}
