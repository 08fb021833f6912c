package types

type EntityType string

const (
	EntityTypePerson       EntityType = "PERSON"
	EntityTypeOrganization EntityType = "ORGANIZATION"
	EntityTypeLocation     EntityType = "LOCATION"
	EntityTypeDate         EntityType = "DATE"
	EntityTypePhoneNumber  EntityType = "PHONE_NUMBER"
	EntityTypeEmail        EntityType = "EMAIL"
	EntityTypeURL          EntityType = "URL"
	EntityTypeOther        EntityType = "OTHER"
)

// Entity is one piece of structured data pulled out of extracted text.
type Entity struct {
	Text       string     `json:"text"`
	Type       EntityType `json:"type"`
	Confidence float64    `json:"confidence"`
}

type BoundingBox struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type DetectedObject struct {
	Name        string       `json:"name"`
	Confidence  float64      `json:"confidence"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
}

type ImageMetadata struct {
	Width              int              `json:"width,omitempty"`
	Height             int              `json:"height,omitempty"`
	DetectedObjects    []DetectedObject `json:"detected_objects,omitempty"`
	DominantColors     []string         `json:"dominant_colors,omitempty"`
	ContainsText       bool             `json:"contains_text"`
	ExtractedImageText string           `json:"extracted_image_text,omitempty"`
}

type Table struct {
	ID         string     `json:"id"`
	PageNumber int        `json:"page_number"`
	Headers    []string   `json:"headers,omitempty"`
	Rows       [][]string `json:"rows,omitempty"`
}

type DocumentMetadata struct {
	PageCount     int               `json:"page_count,omitempty"`
	DocumentType  string            `json:"document_type,omitempty"`
	KeyValuePairs map[string]string `json:"key_value_pairs,omitempty"`
	Tables        []Table           `json:"tables,omitempty"`
}

// FileMetadata is derived, content-type-dependent metadata. ContentType acts
// as the variant tag: "image" populates ImageData, "document" populates
// DocumentData, any raw MIME type populates neither.
type FileMetadata struct {
	ContentType      string            `json:"content_type"`
	ExtractedText    string            `json:"extracted_text,omitempty"`
	Entities         []Entity          `json:"entities,omitempty"`
	Categories       []string          `json:"categories,omitempty"`
	ImageData        *ImageMetadata    `json:"image_data,omitempty"`
	DocumentData     *DocumentMetadata `json:"document_data,omitempty"`
	CustomAttributes map[string]string `json:"custom_attributes,omitempty"`
}
