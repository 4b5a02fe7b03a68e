package recipe

import (
	"strconv"
	"strings"
	"unicode"
)

// IngredientText renders the canonical human-readable line for an ingredient.
//
// With an amount: "min" (and "-max" when max differs) then the unit, each
// followed by a space. Without an amount, a unit that itself carries a digit
// (e.g. "2cm") is still rendered. Then trimmed prefix, then the name with any
// trailing comma stripped, then ", " + suffix when present.
func IngredientText(ing Ingredient) string {
	var b strings.Builder

	if ing.Amount != nil && ing.Amount.Min != nil {
		b.WriteString(formatQuantity(*ing.Amount.Min))
		if ing.Amount.Max != nil && *ing.Amount.Max != *ing.Amount.Min {
			b.WriteString("-")
			b.WriteString(formatQuantity(*ing.Amount.Max))
		}
		b.WriteString(" ")
		if ing.Unit != nil {
			b.WriteString(strings.TrimSpace(*ing.Unit))
			b.WriteString(" ")
		}
	} else if ing.Unit != nil && containsDigit(*ing.Unit) {
		b.WriteString(strings.TrimSpace(*ing.Unit))
		b.WriteString(" ")
	}

	if ing.Prefix != nil {
		b.WriteString(strings.TrimSpace(*ing.Prefix))
		b.WriteString(" ")
	}

	name := strings.TrimSpace(ing.Name)
	name = strings.TrimSuffix(name, ",")
	b.WriteString(name)

	if ing.Suffix != nil {
		b.WriteString(", ")
		b.WriteString(strings.TrimSpace(*ing.Suffix))
	}

	return strings.TrimSpace(b.String())
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
