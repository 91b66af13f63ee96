// Package sample generates synthetic payments and orders CSV files in the
// layout the loader expects. Output is deterministic for a given seed.
package sample

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Column layouts, matching the registered payments and orders entities.
var (
	PaymentsHeader = []string{
		"payment_id", "provider_id", "payment_date",
		"copay_amount", "insurance_amount", "total_amount", "cost_amount", "profit_amount",
	}
	OrdersHeader = []string{"provider_id", "order_id", "order_date", "order_type"}
)

// orderTypes and their draw weights.
var orderTypes = []struct {
	name   string
	weight float64
}{
	{"cycle_3m", 0.5},
	{"cycle_6m", 0.3},
	{"cycle_9m", 0.2},
}

// Options control the generated volume and date range.
type Options struct {
	Providers   int // P_0001..P_<Providers>
	MaxPayments int // per provider, at least 1
	MaxOrders   int // per provider, at least 1
	Start       time.Time
	End         time.Time // exclusive
	Seed        uint64
}

// DefaultOptions returns 50 providers, up to 3 payments and 2 orders each,
// dated 2024-01-01 up to but excluding 2025-10-02.
func DefaultOptions() Options {
	return Options{
		Providers:   50,
		MaxPayments: 3,
		MaxOrders:   2,
		Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC),
		Seed:        1,
	}
}

func (o Options) validate() error {
	if o.Providers < 1 || o.Providers > 9999 {
		return fmt.Errorf("providers must be 1-9999, got %d", o.Providers)
	}
	if o.MaxPayments < 1 || o.MaxOrders < 1 {
		return fmt.Errorf("max payments and orders per provider must be positive")
	}
	if !o.End.After(o.Start) {
		return fmt.Errorf("end %s must be after start %s", o.End.Format(time.DateOnly), o.Start.Format(time.DateOnly))
	}
	return nil
}

// Payment is one payments.csv row. Amounts are rounded to cents;
// Total is Copay+Insurance and Profit is Total-Cost.
type Payment struct {
	PaymentID   string // PM_<provider>_<index>
	ProviderID  string
	PaymentDate time.Time
	Copay       float64
	Insurance   float64
	Total       float64
	Cost        float64 // 50-80% of Total
	Profit      float64
}

func (p Payment) record() []string {
	return []string{
		p.PaymentID,
		p.ProviderID,
		p.PaymentDate.Format(time.DateOnly),
		money(p.Copay),
		money(p.Insurance),
		money(p.Total),
		money(p.Cost),
		money(p.Profit),
	}
}

// Order is one orders.csv row.
type Order struct {
	ProviderID string
	OrderID    string // O_<provider>_<index>
	OrderDate  time.Time
	OrderType  string // cycle_3m, cycle_6m or cycle_9m
}

func (o Order) record() []string {
	return []string{o.ProviderID, o.OrderID, o.OrderDate.Format(time.DateOnly), o.OrderType}
}

// Dataset is one generated batch, in provider order.
type Dataset struct {
	Payments []Payment // 1..MaxPayments per provider
	Orders   []Order   // 1..MaxOrders per provider
}

// Generate builds a dataset. Payments are drawn for every provider first,
// then orders, so changing MaxOrders never changes the payments.
func Generate(opts Options) (Dataset, error) {
	if err := opts.validate(); err != nil {
		return Dataset{}, err
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	days := int(opts.End.Sub(opts.Start).Hours() / 24)
	if days < 1 {
		days = 1
	}
	randomDate := func() time.Time {
		return opts.Start.AddDate(0, 0, rng.IntN(days))
	}

	var ds Dataset
	for i := 1; i <= opts.Providers; i++ {
		n := 1 + rng.IntN(opts.MaxPayments)
		for j := 0; j < n; j++ {
			copay := round2(uniform(rng, 10, 100))
			insurance := round2(uniform(rng, 50, 500))
			total := round2(copay + insurance)
			cost := round2(total * uniform(rng, 0.5, 0.8))

			ds.Payments = append(ds.Payments, Payment{
				PaymentID:   fmt.Sprintf("PM_%04d_%04d", i, j),
				ProviderID:  providerID(i),
				PaymentDate: randomDate(),
				Copay:       copay,
				Insurance:   insurance,
				Total:       total,
				Cost:        cost,
				Profit:      round2(total - cost),
			})
		}
	}

	for i := 1; i <= opts.Providers; i++ {
		n := 1 + rng.IntN(opts.MaxOrders)
		for j := 0; j < n; j++ {
			ds.Orders = append(ds.Orders, Order{
				ProviderID: providerID(i),
				OrderID:    fmt.Sprintf("O_%04d_%03d", i, j),
				OrderDate:  randomDate(),
				OrderType:  pickOrderType(rng),
			})
		}
	}

	return ds, nil
}

// providerID formats the 1-based provider index as P_0001.
func providerID(i int) string {
	return fmt.Sprintf("P_%04d", i)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// round2 rounds to cents, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// pickOrderType draws from orderTypes by weight.
func pickOrderType(rng *rand.Rand) string {
	r := rng.Float64()
	for _, ot := range orderTypes {
		if r < ot.weight {
			return ot.name
		}
		r -= ot.weight
	}
	return orderTypes[len(orderTypes)-1].name
}

// WritePayments writes the payments CSV, header first.
func (d Dataset) WritePayments(w io.Writer) error {
	rows := make([][]string, 0, len(d.Payments))
	for _, p := range d.Payments {
		rows = append(rows, p.record())
	}
	return writeCSV(w, PaymentsHeader, rows)
}

// WriteOrders writes the orders CSV, header first.
func (d Dataset) WriteOrders(w io.Writer) error {
	rows := make([][]string, 0, len(d.Orders))
	for _, o := range d.Orders {
		rows = append(rows, o.record())
	}
	return writeCSV(w, OrdersHeader, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFiles writes payments.csv and orders.csv under dir, creating it if
// needed, and returns the two paths.
func (d Dataset) WriteFiles(dir string) (paymentsPath, ordersPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create %s: %w", dir, err)
	}

	paymentsPath = filepath.Join(dir, "payments.csv")
	if err := writeFile(paymentsPath, d.WritePayments); err != nil {
		return "", "", err
	}

	ordersPath = filepath.Join(dir, "orders.csv")
	if err := writeFile(ordersPath, d.WriteOrders); err != nil {
		return "", "", err
	}

	return paymentsPath, ordersPath, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
