package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/finsightlabs/finsight-go/models"
)

// ApplyFilter keeps only rows whose values are members of the plan's
// per-field allow lists (OR within a field, AND across fields). Fields that
// are not columns of the frame are ignored. Nil filters and empty frames
// are no-ops.
func ApplyFilter(frame *models.Frame, plan models.ChartPlan) *models.Frame {
	if len(plan.Filter) == 0 || frame.Len() == 0 {
		return frame
	}
	out := frame
	for field, allowed := range plan.Filter {
		if !out.HasColumn(field) {
			continue
		}
		field, allowed := field, allowed
		out = out.Select(func(row map[string]interface{}) bool {
			for _, want := range allowed {
				if looseEqual(row[field], want) {
					return true
				}
			}
			return false
		})
	}
	return out
}

// looseEqual compares a cell against a filter value across the numeric
// types BSON and JSON decoding produce; everything else compares by its
// string form.
func looseEqual(a, b interface{}) bool {
	af, aok := models.ToFloat64(a)
	bf, bok := models.ToFloat64(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// ApplyCalculation evaluates the plan's single-assignment calculation
// ("newColumn = expression") against the frame's columns and adds the
// result as a new column. Malformed strings, unknown columns, and
// evaluation errors leave the frame unchanged; this stage never fails.
func ApplyCalculation(frame *models.Frame, plan models.ChartPlan) *models.Frame {
	calc := plan.Calculation
	if calc == "" || !strings.Contains(calc, "=") || frame.Len() == 0 {
		return frame
	}
	parts := strings.SplitN(calc, "=", 2)
	name := strings.TrimSpace(parts[0])
	expression := strings.TrimSpace(parts[1])
	if name == "" || expression == "" {
		return frame
	}

	program, err := expr.Compile(expression)
	if err != nil {
		log.Printf("Calculation failed (%s): %v", calc, err)
		return frame
	}

	values := make([]interface{}, frame.Len())
	for i, row := range frame.Rows {
		env := make(map[string]interface{}, len(frame.Columns))
		for _, col := range frame.Columns {
			v := row[col]
			if f, ok := models.ToFloat64(v); ok {
				env[col] = f
			} else {
				env[col] = v
			}
		}
		result, err := expr.Run(program, env)
		if err != nil {
			log.Printf("Calculation failed (%s): %v", calc, err)
			return frame
		}
		if result == nil {
			// referencing a column that does not exist resolves to nil
			log.Printf("Calculation failed (%s): unknown column", calc)
			return frame
		}
		values[i] = result
	}

	frame.AddColumn(name, values)
	log.Printf("Applied calculation: %s", calc)
	return frame
}
