package dto

// FacturifyEmpresa empresa (emisor) registrada en la cuenta de Facturify.
// Solo se modelan los campos que usa la API; el resto del objeto se ignora.
type FacturifyEmpresa struct {
	UUID                string  `json:"uuid"`
	Tipo                string  `json:"tipo"`
	RazonSocial         string  `json:"razon_social"`
	OrganizacionUUID    string  `json:"organizacion_uuid"`
	RFC                 string  `json:"rfc"`
	Regimen             string  `json:"regimen"`
	Email               *string `json:"email,omitempty"`
	CP                  string  `json:"cp"`
	Calle               *string `json:"calle,omitempty"`
	NumExt              *string `json:"num_ext,omitempty"`
	NumInt              *string `json:"num_int,omitempty"`
	Colonia             string  `json:"colonia"`
	DelegacionMunicipio string  `json:"delegacion_municipio"`
	Ciudad              *string `json:"ciudad,omitempty"`
	Estado              string  `json:"estado"`
	Status              string  `json:"status"`
	RazonStatus         string  `json:"razon_status"`
	CreatedAt           *string `json:"created_at,omitempty"`
	UpdatedAt           *string `json:"updated_at,omitempty"`
}

// FacturifyPagination paginación de los listados del proveedor.
type FacturifyPagination struct {
	Total       int   `json:"total"`
	Count       int   `json:"count"`
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	Links       []any `json:"links"`
}

// EmpresaListResponse GET /api/v1/empresa/.
type EmpresaListResponse struct {
	Data []FacturifyEmpresa `json:"data"`
	Meta struct {
		Pagination FacturifyPagination `json:"pagination"`
	} `json:"meta"`
}

// EmpresaResponse una empresa.
type EmpresaResponse struct {
	Data FacturifyEmpresa `json:"data"`
}
