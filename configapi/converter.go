package configapi

// Format names understood by the built-in converters.
const (
	FormatXML  = "xml"
	FormatTOML = "toml"
)

// FormatConverter bridges the internal document and the text a user edits on disk.
// Both directions are best-effort: malformed input degrades field by field.
type FormatConverter interface {
	// Format is the registry key, e.g. "toml".
	Format() string
	// Extension is the file extension the host should use, dot included.
	Extension() string
	ToExternal(typeName string, descriptions Descriptions, internal string, includeDescriptions bool) string
	ToInternal(typeName, external string) string
}

// IdentityConverter stores the internal document as is.
type IdentityConverter struct{}

func (IdentityConverter) Format() string    { return FormatXML }
func (IdentityConverter) Extension() string { return ".xml" }

// ToExternal returns internal unchanged.
func (IdentityConverter) ToExternal(_ string, _ Descriptions, internal string, _ bool) string {
	return internal
}

// ToInternal returns external unchanged.
func (IdentityConverter) ToInternal(_, external string) string {
	return external
}
