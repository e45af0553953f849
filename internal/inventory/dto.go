package inventory

import (
	"time"

	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	"github.com/angelmondragon/gemvault-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemDTO is the inventory item payload returned to clients.
type ItemDTO struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Category        CategoryRef     `json:"category"`
	Unit            UnitRef         `json:"unit"`
	SubcategoryCode *CodeRef        `json:"subcategory_code,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Value           decimal.Decimal `json:"value"`
	IsActive        bool            `json:"is_active"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type CategoryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type UnitRef struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	ValueType enums.UnitValueType `json:"value_type"`
}

type CodeRef struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
}

// ItemList is one page of items.
type ItemList struct {
	Items      []ItemDTO       `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

// ItemName is the compact shape used by pickers and bulk templates.
type ItemName struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Unit     string    `json:"unit"`
}

// Metadata lists the catalog options an item form needs.
type Metadata struct {
	Categories []CategoryOption `json:"categories"`
	Units      []UnitRef        `json:"units"`
}

type CategoryOption struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Codes []CodeRef `json:"codes"`
}

// UserRef names the actor of a movement.
type UserRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// TransactionDTO is one ledger row as shown to clients. Amount keeps its
// sign; Quantity is the unsigned amount moved.
type TransactionDTO struct {
	ID            uuid.UUID             `json:"id"`
	ItemID        uuid.UUID             `json:"item_id"`
	Type          enums.TransactionType `json:"type"`
	TypeLabel     string                `json:"type_label"`
	Amount        decimal.Decimal       `json:"amount"`
	Quantity      decimal.Decimal       `json:"quantity"`
	Price         *decimal.Decimal      `json:"price,omitempty"`
	Total         decimal.Decimal       `json:"total"`
	GroupID       *uuid.UUID            `json:"group_id,omitempty"`
	PaymentMethod *enums.PaymentMethod  `json:"payment_method,omitempty"`
	ClientName    *string               `json:"client_name,omitempty"`
	Notes         *string               `json:"notes,omitempty"`
	User          *UserRef              `json:"user,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// MovementResult is returned by single-item stock operations.
type MovementResult struct {
	Item        ItemDTO        `json:"item"`
	Transaction TransactionDTO `json:"transaction"`
}

// GroupResult is returned by bulk loads and grouped sales.
type GroupResult struct {
	GroupID       uuid.UUID            `json:"group_id"`
	Kind          enums.GroupKind      `json:"kind"`
	PaymentMethod *enums.PaymentMethod `json:"payment_method,omitempty"`
	ClientName    *string              `json:"client_name,omitempty"`
	Transactions  []TransactionDTO     `json:"transactions"`
	TotalQuantity decimal.Decimal      `json:"total_quantity"`
	Total         decimal.Decimal      `json:"total"`
	CreatedAt     time.Time            `json:"created_at"`
}

// NewItemDTO maps a persisted item. Relations that were not preloaded are
// left with their ids only.
func NewItemDTO(item *models.InventoryItem) ItemDTO {
	dto := ItemDTO{
		ID:        item.ID,
		Name:      item.Name,
		Category:  CategoryRef{ID: item.CategoryID},
		Unit:      UnitRef{ID: item.UnitID},
		Quantity:  item.Quantity,
		Price:     item.Price,
		Value:     item.Quantity.Mul(item.Price),
		IsActive:  item.IsActive,
		DeletedAt: item.DeletedAt,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	if item.Category != nil {
		dto.Category.Name = item.Category.Name
	}
	if item.Unit != nil {
		dto.Unit = NewUnitRef(item.Unit)
	}
	if item.SubcategoryCode != nil {
		dto.SubcategoryCode = &CodeRef{ID: item.SubcategoryCode.ID, Code: item.SubcategoryCode.Code}
	} else if item.SubcategoryCodeID != nil {
		dto.SubcategoryCode = &CodeRef{ID: *item.SubcategoryCodeID}
	}
	return dto
}

func NewUnitRef(unit *models.Unit) UnitRef {
	return UnitRef{ID: unit.ID, Name: unit.Name, ValueType: unit.ValueType}
}

// NewTransactionDTO maps a ledger row.
func NewTransactionDTO(txn *models.InventoryTransaction) TransactionDTO {
	dto := TransactionDTO{
		ID:            txn.ID,
		ItemID:        txn.ItemID,
		Type:          txn.Type,
		TypeLabel:     txn.Type.Label(),
		Amount:        txn.Amount,
		Quantity:      txn.Quantity(),
		Total:         txn.LineTotal(),
		GroupID:       txn.GroupID,
		PaymentMethod: txn.PaymentMethod,
		ClientName:    txn.ClientName,
		Notes:         txn.Notes,
		CreatedAt:     txn.CreatedAt,
	}
	if txn.Price.Valid {
		price := txn.Price.Decimal
		dto.Price = &price
	}
	if txn.User != nil {
		dto.User = &UserRef{ID: txn.User.ID, Name: txn.User.Name}
	}
	return dto
}

func newGroupResult(group *models.InventoryTransactionGroup) *GroupResult {
	result := &GroupResult{
		GroupID:       group.ID,
		Kind:          group.Kind,
		PaymentMethod: group.PaymentMethod,
		ClientName:    group.ClientName,
		Transactions:  make([]TransactionDTO, 0, len(group.Transactions)),
		TotalQuantity: decimal.Zero,
		Total:         decimal.Zero,
		CreatedAt:     group.CreatedAt,
	}
	for i := range group.Transactions {
		dto := NewTransactionDTO(&group.Transactions[i])
		result.TotalQuantity = result.TotalQuantity.Add(dto.Quantity)
		result.Total = result.Total.Add(dto.Total)
		result.Transactions = append(result.Transactions, dto)
	}
	return result
}
