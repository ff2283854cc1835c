// Package supply records quantities partners report against their contract
// lines. It is the collaborator whose records make tombstoning necessary.
package supply

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/pkg/logger"
	"github.com/fastygo/agentsync/repository"
)

type UseCase struct {
	uow    repository.UnitOfWork
	logger *zap.Logger
}

func New(uow repository.UnitOfWork, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{uow: uow, logger: logger}
}

// ReportSupply appends a supply. A referenced contract line must be active,
// belong to the reporting partner and be for the reported product.
func (uc *UseCase) ReportSupply(ctx context.Context, report domain.SupplyReport) (*domain.ProductSupply, error) {
	if verr := report.Validate(); verr != nil {
		return nil, verr
	}
	if report.UUID == "" {
		report.UUID = uuid.NewString()
	}

	var supply *domain.ProductSupply
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		partner, err := stores.Partners.GetByUUID(ctx, report.BPartnerUUID)
		if err != nil {
			return err
		}
		product, err := stores.Products.GetByUUID(ctx, report.ProductUUID)
		if err != nil {
			return err
		}

		supply = &domain.ProductSupply{
			UUID:      report.UUID,
			PartnerID: partner.ID,
			ProductID: product.ID,
			Day:       domain.TruncDay(report.Day),
			Qty:       report.Qty,
		}

		if report.ContractLineUUID != "" {
			line, err := uc.checkLine(ctx, stores, report, partner, product)
			if err != nil {
				return err
			}
			supply.ContractLineID = &line.ID
		}
		return stores.Supplies.Append(ctx, supply)
	})
	if err != nil {
		return nil, err
	}

	logger.WithRequestID(ctx, uc.logger).Info("supply reported",
		zap.String("supply_uuid", supply.UUID),
		zap.String("bpartner_uuid", report.BPartnerUUID),
		zap.String("product_uuid", report.ProductUUID),
		zap.String("contract_line_uuid", report.ContractLineUUID),
		zap.String("qty", supply.Qty.String()))
	return supply, nil
}

func (uc *UseCase) checkLine(ctx context.Context, stores repository.Stores, report domain.SupplyReport, partner *domain.Partner, product *domain.Product) (*domain.ContractLine, error) {
	line, err := stores.ContractLines.GetByUUID(ctx, report.ContractLineUUID)
	if err != nil {
		return nil, err
	}
	if !line.IsActive() {
		return nil, domain.NewValidationError(domain.KindContractLine, line.UUID, "contract line is deleted")
	}
	if line.ProductID != product.ID {
		return nil, domain.NewValidationError(domain.KindContractLine, line.UUID, "contract line is not for product %s", product.UUID)
	}
	contract, err := stores.Contracts.GetByID(ctx, line.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.PartnerID != partner.ID {
		return nil, domain.NewValidationError(domain.KindContractLine, line.UUID, "contract line does not belong to bpartner %s", partner.UUID)
	}
	return line, nil
}

// ListByContractLine returns the supplies recorded against a line, including
// lines that were tombstoned since.
func (uc *UseCase) ListByContractLine(ctx context.Context, contractLineUUID string) ([]domain.ProductSupply, error) {
	stores := uc.uow.Stores()
	line, err := stores.ContractLines.GetByUUID(ctx, contractLineUUID)
	if err != nil {
		return nil, err
	}
	return stores.Supplies.ListByContractLine(ctx, line.ID)
}
