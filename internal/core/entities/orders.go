package entities

import "github.com/JonMunkholm/stageloader/internal/core"

func init() {
	registerOrders()
}

func registerOrders() {
	core.Register(core.EntityDefinition{
		Name:       "orders",
		Table:      "stg_orders",
		DateColumn: "order_date",
		Fields: []core.FieldSpec{
			{Name: "provider_id", Type: core.FieldText, Required: true},
			{Name: "order_id", Type: core.FieldText, Required: true},
			{Name: "order_date", Type: core.FieldDate, Required: true},
			{Name: "order_type", Type: core.FieldText},
		},
		Output: []core.OutputColumn{
			{Name: "provider_id", Kind: core.ExprPassThrough, Source: "provider_id", Type: core.FieldText},
			{Name: "order_id", Kind: core.ExprPassThrough, Source: "order_id", Type: core.FieldText},
			{Name: "order_date", Kind: core.ExprPassThrough, Source: "order_date", Type: core.FieldDate},
			{Name: "order_type", Kind: core.ExprPassThrough, Source: "order_type", Type: core.FieldText},
			{Name: "subscription_cycle_months", Kind: core.ExprCycleMonths, Source: "order_type", Type: core.FieldInteger},
			{Name: "load_timestamp", Kind: core.ExprLoadTimestamp, Type: core.FieldTimestamp},
		},
	})
}
