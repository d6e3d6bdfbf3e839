package tabular

import "blocosrj/pkg/textnorm"

// Canonical field names.
const (
	FieldName         = "name"
	FieldAddress      = "address"
	FieldNeighborhood = "neighborhood"
	FieldDate         = "date"
	FieldStartTime    = "start_time"
	FieldLatitude     = "latitude"
	FieldLongitude    = "longitude"
)

var synonyms = map[string]string{
	"nome":          FieldName,
	"bloco":         FieldName,
	"nome_bloco":    FieldName,
	"nome_do_bloco": FieldName,
	"name":          FieldName,

	"endereco":              FieldAddress,
	"endereco_bloco":        FieldAddress,
	"endereco_concentracao": FieldAddress,
	"local":                 FieldAddress,
	"local_concentracao":    FieldAddress,
	"address":               FieldAddress,

	"bairro":       FieldNeighborhood,
	"neighborhood": FieldNeighborhood,

	"data": FieldDate,
	"dia":  FieldDate,
	"date": FieldDate,

	"hora":                 FieldStartTime,
	"horario":              FieldStartTime,
	"horario_inicio":       FieldStartTime,
	"hora_inicio":          FieldStartTime,
	"hora_concentracao":    FieldStartTime,
	"horario_concentracao": FieldStartTime,
	"concentracao":         FieldStartTime,
	"start_time":           FieldStartTime,

	"lat":      FieldLatitude,
	"latitude": FieldLatitude,

	"lng":       FieldLongitude,
	"lon":       FieldLongitude,
	"long":      FieldLongitude,
	"longitude": FieldLongitude,
}

// NormalizeHeader lowercases, strips diacritics, replaces whitespace with
// underscores and maps known aliases to a canonical field name. Unknown headers
// are returned in their normalized form.
func NormalizeHeader(h string) string {
	n := textnorm.Fold(h, "_")
	if canonical, ok := synonyms[n]; ok {
		return canonical
	}
	return n
}
