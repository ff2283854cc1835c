package agentsync

import (
	"context"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

// ContractLineView is a contract line resolved with its contract and product.
type ContractLineView struct {
	domain.ContractLine
	ContractUUID string          `json:"contract_uuid"`
	Product      *domain.Product `json:"product"`
}

// ActiveContractLines lists the non-tombstoned lines of a contract.
func (uc *UseCase) ActiveContractLines(ctx context.Context, contractUUID string) ([]ContractLineView, error) {
	stores := uc.uow.Stores()
	contract, err := stores.Contracts.GetByUUID(ctx, contractUUID)
	if err != nil {
		return nil, err
	}
	lines, err := stores.ContractLines.List(ctx, repository.ContractLineFilter{ContractID: contract.ID})
	if err != nil {
		return nil, err
	}

	views := make([]ContractLineView, 0, len(lines))
	for _, l := range lines {
		product, err := stores.Products.GetByID(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		views = append(views, ContractLineView{ContractLine: l, ContractUUID: contract.UUID, Product: product})
	}
	return views, nil
}

// ContractLine resolves a line by UUID whatever its status.
func (uc *UseCase) ContractLine(ctx context.Context, uuid string) (*ContractLineView, error) {
	stores := uc.uow.Stores()
	line, err := stores.ContractLines.GetByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}
	contract, err := stores.Contracts.GetByID(ctx, line.ContractID)
	if err != nil {
		return nil, err
	}
	product, err := stores.Products.GetByID(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	return &ContractLineView{ContractLine: *line, ContractUUID: contract.UUID, Product: product}, nil
}
