package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"
)

type CatalogReference struct{ ent.Schema }

func (CatalogReference) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "catalog_references"},
	}
}

func (CatalogReference) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.String("code").NotEmpty().Unique(),
		field.String("description").Default(""),
		field.Float("unit_weight").Default(0).Min(0),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}
