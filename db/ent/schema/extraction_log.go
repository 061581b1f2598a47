package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/db/ent/schema/utils"
)

// ExtractionLog is the audit row written for every extraction, failed ones included.
type ExtractionLog struct{ ent.Schema }

func (ExtractionLog) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "extraction_logs"},
	}
}

func (ExtractionLog) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.Time("created_at").Default(time.Now).Immutable(),
		field.String("request_id").Default(""),
		field.String("document_name").NotEmpty(),
		field.String("method").
			Validate(utils.EnumValidator(constants.ExtractionMethods...)),
		field.String("status").
			Validate(utils.EnumValidator(constants.ExtractionStatuses...)),
		field.Text("raw_model_sample").Default(""),
		field.Text("parsed_draft").Optional().Nillable(),
		// JSON array of strings
		field.Text("warnings").Default("[]"),
		field.Float("confidence").Default(0),
		field.Int64("duration_ms").Default(0),
		field.Text("error_message").Default(""),
		// no foreign key: logs outlive deleted orders
		field.UUID("order_id", uuid.UUID{}).Optional().Nillable(),
		field.String("submitted_by").Default(""),
		field.String("prompt_version").Default(""),
	}
}

func (ExtractionLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("created_at"),
	}
}
