package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

type OrderItem struct{ ent.Schema }

func (OrderItem) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "order_items"},
	}
}

func (OrderItem) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.Int("position").NonNegative(),
		field.String("description").Default(""),
		field.String("material_name").Default(""),
		field.String("finish").Default(""),
		field.Float("length_cm").Default(0),
		field.Float("width_cm").Default(0),
		field.Float("thickness_cm").Default(0),
		field.Int("piece_count").Default(0),
		field.Float("declared_quantity").Default(0),
		// exactly one of area/volume is set, unless the material is ambiguous
		field.Float("area_m2").Optional().Nillable(),
		field.Float("volume_m3").Optional().Nillable(),
		field.String("catalog_id").Optional().Nillable(),
		field.Bool("matched").Default(false),
		field.UUID("order_id", uuid.UUID{}),
	}
}

func (OrderItem) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("order", Order.Type).
			Ref("items").
			Field("order_id").
			Unique().
			Required(),
	}
}

func (OrderItem) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("order_id", "position").Unique(),
	}
}
