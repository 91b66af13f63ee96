package entities

import "github.com/JonMunkholm/stageloader/internal/core"

func init() {
	registerPayments()
}

var moneyColumns = []string{
	"copay_amount",
	"insurance_amount",
	"total_amount",
	"cost_amount",
	"profit_amount",
}

func registerPayments() {
	fields := []core.FieldSpec{
		{Name: "payment_id", Type: core.FieldText, Required: true},
		{Name: "provider_id", Type: core.FieldText, Required: true},
		{Name: "payment_date", Type: core.FieldDate, Required: true},
	}
	output := []core.OutputColumn{
		{Name: "payment_id", Kind: core.ExprPassThrough, Source: "payment_id", Type: core.FieldText},
		{Name: "provider_id", Kind: core.ExprPassThrough, Source: "provider_id", Type: core.FieldText},
		{Name: "payment_date", Kind: core.ExprPassThrough, Source: "payment_date", Type: core.FieldDate},
	}

	for _, col := range moneyColumns {
		fields = append(fields, core.FieldSpec{Name: col, Type: core.FieldBigNumeric})
		output = append(output, core.OutputColumn{Name: col, Kind: core.ExprRoundMoney, Source: col, Type: core.FieldNumeric})
	}
	output = append(output, core.OutputColumn{Name: "load_timestamp", Kind: core.ExprLoadTimestamp, Type: core.FieldTimestamp})

	core.Register(core.EntityDefinition{
		Name:       "payments",
		Table:      "stg_payments",
		DateColumn: "payment_date",
		Fields:     fields,
		Output:     output,
	})
}
