package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"marketplace-orders/internal/app"
	"marketplace-orders/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

// Usage lists the available one-shot commands.
const Usage = `Available commands:
  recalc <order-id>                               recalculate an order's adjustments
  items  <user-id> <distributor-id> <cycle-id>    list line items the user already bought
  delete <line-item-id> <user-id>                 remove a line item on behalf of a user
  schema <line_item|adjustment|enterprise_fee>    print the JSON Schema of a payload`

// ErrUsage is returned for unknown commands and malformed arguments.
var ErrUsage = errors.New("usage error")

// Run executes a one-shot CLI command, writing its output to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given\n%s", ErrUsage, Usage)
	}

	switch args[0] {
	case "recalc", "recalculate":
		ids, err := parseIDs(args[1:], "order-id")
		if err != nil {
			return err
		}
		result, err := svc.RecalculateOrder(ctx, ids[0])
		if err != nil {
			return fmt.Errorf("recalculate order %d: %w", ids[0], err)
		}
		printOrderTotals(out, result.Order)

	case "items", "bought":
		ids, err := parseIDs(args[1:], "user-id", "distributor-id", "cycle-id")
		if err != nil {
			return err
		}
		user, err := resolveUser(ctx, svc, ids[0])
		if err != nil {
			return err
		}
		result, err := svc.ListBoughtItems(ctx, app.BoughtItemsRequest{
			User:          user,
			DistributorID: &ids[1],
			OrderCycleID:  &ids[2],
		})
		if err != nil {
			return fmt.Errorf("list bought items: %w", err)
		}
		printLineItems(out, result.Items)

	case "delete", "rm":
		ids, err := parseIDs(args[1:], "line-item-id", "user-id")
		if err != nil {
			return err
		}
		user, err := resolveUser(ctx, svc, ids[1])
		if err != nil {
			return err
		}
		result, err := svc.DeleteLineItem(ctx, app.DeleteLineItemRequest{LineItemID: ids[0], User: user})
		if err != nil {
			return fmt.Errorf("delete line item %d: %w", ids[0], err)
		}
		fmt.Fprintf(out, "Line item %d removed from order %d. Item total %s, adjustments %s.\n",
			result.LineItemID, result.OrderID, result.ItemTotal.StringFixed(2), result.AdjustmentTotal.StringFixed(2))

	case "schema":
		if len(args) < 2 {
			return fmt.Errorf("%w: schema needs a payload name\n%s", ErrUsage, Usage)
		}
		schema, err := Schema(args[1])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(schema)

	default:
		return fmt.Errorf("%w: unknown command %q\n%s", ErrUsage, args[0], Usage)
	}
	return nil
}

var schemaTypes = map[string]any{
	"line_item":      core.LineItem{},
	"adjustment":     core.Adjustment{},
	"enterprise_fee": core.EnterpriseFee{},
}

// Schema reflects the JSON Schema of a named payload type. Money fields are decimal strings.
func Schema(name string) (*jsonschema.Schema, error) {
	v, ok := schemaTypes[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown payload %q", ErrUsage, name)
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(decimal.Decimal{}) {
				return &jsonschema.Schema{Type: "string", Pattern: `^-?\d+(\.\d+)?$`}
			}
			return nil
		},
	}
	return reflector.Reflect(v), nil
}

func resolveUser(ctx context.Context, svc app.ApplicationService, userID int64) (*core.User, error) {
	user, err := svc.ResolveUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, core.ErrUserNotFound)
	}
	return user, nil
}

func parseIDs(args []string, names ...string) ([]int64, error) {
	if len(args) < len(names) {
		return nil, fmt.Errorf("%w: expected <%s>", ErrUsage, strings.Join(names, "> <"))
	}
	ids := make([]int64, len(names))
	for i, name := range names {
		id, err := strconv.ParseInt(args[i], 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrUsage, name, args[i])
		}
		ids[i] = id
	}
	return ids, nil
}

func printOrderTotals(out io.Writer, o *core.Order) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  ORDER %d %s\n", o.ID, o.Number)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-40s %9s %9s\n", "ADJUSTMENT", "AMOUNT", "TAX")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, a := range o.Adjustments {
		label := a.Label
		if a.Canceled {
			label += " (canceled)"
		}
		fmt.Fprintf(out, "  %-40s %9s %9s\n", truncate(label, 40), a.Amount.StringFixed(2), a.IncludedTax.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("-", 62))
	fmt.Fprintf(out, "  %-40s %9s\n", "Item total", o.ItemTotal.StringFixed(2))
	fmt.Fprintf(out, "  %-40s %9s\n", "Adjustment total", o.AdjustmentTotal.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func printLineItems(out io.Writer, items []core.LineItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No items bought in this order cycle.")
		return
	}
	fmt.Fprintf(out, "  %-8s %-8s %-10s %5s %10s\n", "ITEM", "ORDER", "VARIANT", "QTY", "PRICE")
	for _, li := range items {
		fmt.Fprintf(out, "  %-8d %-8d %-10d %5d %10s\n", li.ID, li.OrderID, li.VariantID, li.Quantity, li.Price.StringFixed(2))
	}
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
