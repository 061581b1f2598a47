// Package schema describes the stored debit orders in ent's schema language.
// The repository derives its migration tables and column lists from these
// types at startup.
package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

type Order struct{ ent.Schema }

func (Order) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "orders"},
	}
}

func (Order) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.String("order_number").Default(""),
		// unique when present; drafts without an ARC are stored with NULL
		field.String("arc_number").Optional().Nillable(),
		field.String("order_date").Default(""),
		field.String("due_date").Default(""),
		field.String("client_name").Default(""),
		field.String("site_reference").Default(""),
		field.String("salesperson_code").Default(""),
		field.String("material").Default(""),
		field.String("thickness").Default(""),
		field.Float("total_area").Default(0),
		field.Float("total_volume").Default(0),
		field.Float("declared_total").Optional().Nillable(),
		field.Float("confidence").Default(0).Min(0).Max(1),
		field.Bool("needs_review").Default(false),
		field.String("source_document").NotEmpty(),
		field.String("submitted_by").Default(""),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Order) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("items", OrderItem.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (Order) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("arc_number").Unique(),
		index.Fields("created_at"),
	}
}
