// Package baggage
// Author: momentics <momentics@gmail.com>
//
// Bridge to OpenTelemetry W3C baggage.

package baggage

import (
	"context"
	"fmt"

	otelbaggage "go.opentelemetry.io/otel/baggage"
)

// FromOTel copies the members of an OpenTelemetry baggage. Values are strings.
func FromOTel(ob otelbaggage.Baggage) Baggage {
	members := ob.Members()
	if len(members) == 0 {
		return Baggage{}
	}
	items := make(map[string]any, len(members))
	for _, m := range members {
		items[m.Key()] = m.Value()
	}
	return Baggage{items: items}
}

// FromContext extracts the OpenTelemetry baggage carried by ctx.
func FromContext(ctx context.Context) Baggage {
	return FromOTel(otelbaggage.FromContext(ctx))
}

// ToOTel converts b into OpenTelemetry baggage. Non-string values are
// rendered with fmt.Sprint.
func (b Baggage) ToOTel() (otelbaggage.Baggage, error) {
	members := make([]otelbaggage.Member, 0, len(b.items))
	for _, k := range b.Keys() {
		var value string
		switch v := b.items[k].(type) {
		case string:
			value = v
		case fmt.Stringer:
			value = v.String()
		default:
			value = fmt.Sprint(v)
		}
		m, err := otelbaggage.NewMemberRaw(k, value)
		if err != nil {
			return otelbaggage.Baggage{}, fmt.Errorf("baggage: key %q: %w", k, err)
		}
		members = append(members, m)
	}
	return otelbaggage.New(members...)
}

// ContextWith returns ctx carrying b as OpenTelemetry baggage.
func (b Baggage) ContextWith(ctx context.Context) (context.Context, error) {
	ob, err := b.ToOTel()
	if err != nil {
		return ctx, err
	}
	return otelbaggage.ContextWithBaggage(ctx, ob), nil
}
