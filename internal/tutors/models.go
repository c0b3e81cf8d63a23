package tutors

import (
	"encoding/json"
	"strconv"
	"strings"

	domainErrors "patas/pkg/domain-errors"
)

// Photo is an uploaded picture attached to a tutor.
type Photo struct {
	ID          string `json:"id"`
	Name        string `json:"nome"`
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
}

// Tutor is a pet guardian as the backend returns it.
type Tutor struct {
	ID      string `json:"id"`
	Name    string `json:"nome"`
	Phone   string `json:"telefone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"endereco,omitempty"`
	CPF     string `json:"cpf,omitempty"`
	Photo   *Photo `json:"foto,omitempty"`
}

// Input carries the writable fields for create and update. CPF may contain
// formatting (dots and dash); it is normalized to digits before it goes on
// the wire.
type Input struct {
	Name    string
	Phone   string
	Email   string
	Address string
	CPF     string
}

// payload is the write-side wire shape. The backend stores CPF as a number,
// so a formatted CPF is stripped to digits and omitted entirely when no
// digits remain.
type payload struct {
	Name    string `json:"nome"`
	Phone   string `json:"telefone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"endereco,omitempty"`
	CPF     *int64 `json:"cpf,omitempty"`
}

func (in Input) wirePayload() payload {
	return payload{
		Name:    in.Name,
		Phone:   in.Phone,
		Email:   in.Email,
		Address: in.Address,
		CPF:     cpfDigits(in.CPF),
	}
}

func cpfDigits(cpf string) *int64 {
	var b strings.Builder
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

type tutorDTO struct {
	ID      flexID          `json:"id"`
	Name    *string         `json:"nome"`
	Phone   *string         `json:"telefone"`
	Email   string          `json:"email"`
	Address string          `json:"endereco"`
	CPF     flexID          `json:"cpf"`
	Photo   json.RawMessage `json:"foto"`
}

// Decode converts one backend record into a Tutor. id, nome and telefone
// are required; cpf arrives as a string or a number and is kept as a
// string of digits. An incomplete foto object is dropped.
func Decode(raw json.RawMessage) (Tutor, error) {
	var dto tutorDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return Tutor{}, domainErrors.Wrap(err, domainErrors.CodeMalformedResponse, "invalid tutor payload")
	}
	if dto.ID.value == "" || dto.Name == nil || *dto.Name == "" || dto.Phone == nil || *dto.Phone == "" {
		return Tutor{}, domainErrors.New(domainErrors.CodeMalformedResponse, "tutor record missing required fields")
	}

	return Tutor{
		ID:      dto.ID.value,
		Name:    *dto.Name,
		Phone:   *dto.Phone,
		Email:   dto.Email,
		Address: dto.Address,
		CPF:     dto.CPF.value,
		Photo:   decodePhoto(dto.Photo),
	}, nil
}

func decodePhoto(raw json.RawMessage) *Photo {
	if len(raw) == 0 {
		return nil
	}
	var p Photo
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	if p.ID == "" || p.Name == "" || p.ContentType == "" || p.URL == "" {
		return nil
	}
	return &p
}

// flexID accepts identifiers serialized as strings or numbers.
type flexID struct {
	value string
}

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.value = s
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.value = strconv.FormatFloat(n, 'f', -1, 64)
		return nil
	}
	f.value = ""
	return nil
}
