package models

import (
	"fmt"
	"sort"
	"strings"
)

// EnumError reports a value outside of a closed set of choices.
type EnumError struct {
	Field string
	Value string
	Valid []string
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("%q is not a valid %s; valid choices are: %s", e.Value, e.Field, strings.Join(e.Valid, ", "))
}

type Title string

const (
	TitleMr   Title = "Mr"
	TitleMs   Title = "Ms"
	TitleMrs  Title = "Mrs"
	TitleDr   Title = "Dr"
	TitleProf Title = "Prof"
)

const DefaultTitle = TitleDr

var titles = []Title{TitleMr, TitleMs, TitleMrs, TitleDr, TitleProf}

func ValidTitles() []string {
	out := make([]string, len(titles))
	for i, t := range titles {
		out[i] = string(t)
	}
	return out
}

func ParseTitle(raw string) (Title, error) {
	for _, t := range titles {
		if string(t) == raw {
			return t, nil
		}
	}
	return "", &EnumError{Field: "title", Value: raw, Valid: ValidTitles()}
}

type Country string

const DefaultCountry Country = "Romania"

var countries = map[string]struct{}{}

func init() {
	for _, name := range countryNames {
		countries[name] = struct{}{}
	}
}

func ValidCountries() []string {
	out := make([]string, 0, len(countries))
	for name := range countries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func ParseCountry(raw string) (Country, error) {
	if _, ok := countries[raw]; ok {
		return Country(raw), nil
	}
	return "", &EnumError{Field: "country", Value: raw, Valid: ValidCountries()}
}

// PaperStatus is derived by the review workflow; authors never set it.
type PaperStatus string

const (
	StatusProcessing        PaperStatus = "processing"
	StatusUnderReview       PaperStatus = "under_review"
	StatusAccepted          PaperStatus = "accepted"
	StatusPreliminaryReject PaperStatus = "preliminary_reject"
)

var paperStatuses = []PaperStatus{StatusProcessing, StatusUnderReview, StatusAccepted, StatusPreliminaryReject}

func ValidPaperStatuses() []string {
	out := make([]string, len(paperStatuses))
	for i, s := range paperStatuses {
		out[i] = string(s)
	}
	return out
}

func ParsePaperStatus(raw string) (PaperStatus, error) {
	for _, s := range paperStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", &EnumError{Field: "status", Value: raw, Valid: ValidPaperStatuses()}
}

func (s PaperStatus) Label() string {
	switch s {
	case StatusProcessing:
		return "Processing"
	case StatusUnderReview:
		return "Under review"
	case StatusAccepted:
		return "Accepted"
	case StatusPreliminaryReject:
		return "Preliminary reject"
	}
	return string(s)
}

type Appropriateness string

const (
	Appropriate    Appropriateness = "appropriate"
	NotAppropriate Appropriateness = "not_appropriate"
)

var appropriatenessChoices = []Appropriateness{Appropriate, NotAppropriate}

func ValidAppropriateness() []string {
	out := make([]string, len(appropriatenessChoices))
	for i, a := range appropriatenessChoices {
		out[i] = string(a)
	}
	return out
}

func ParseAppropriateness(raw string) (Appropriateness, error) {
	for _, a := range appropriatenessChoices {
		if string(a) == raw {
			return a, nil
		}
	}
	return "", &EnumError{Field: "appropriate", Value: raw, Valid: ValidAppropriateness()}
}

type Recommendation string

const (
	PublishUnaltered     Recommendation = "+2"
	PublishMinorRevision Recommendation = "+1"
	MajorRevision        Recommendation = "0"
	RejectResubmit       Recommendation = "-1"
	Reject               Recommendation = "-2"
)

var recommendations = []Recommendation{PublishUnaltered, PublishMinorRevision, MajorRevision, RejectResubmit, Reject}

func ValidRecommendations() []string {
	out := make([]string, len(recommendations))
	for i, r := range recommendations {
		out[i] = string(r)
	}
	return out
}

func ParseRecommendation(raw string) (Recommendation, error) {
	for _, r := range recommendations {
		if string(r) == raw {
			return r, nil
		}
	}
	return "", &EnumError{Field: "recommendation", Value: raw, Valid: ValidRecommendations()}
}

func (r Recommendation) Label() string {
	switch r {
	case PublishUnaltered:
		return "Publish unaltered"
	case PublishMinorRevision:
		return "Publish after minor revisions"
	case MajorRevision:
		return "Major revisions required"
	case RejectResubmit:
		return "Reject, encourage resubmission"
	case Reject:
		return "Reject"
	}
	return string(r)
}

var countryNames = []string{
	"Afghanistan", "Albania", "Algeria", "Andorra", "Angola", "Antigua and Barbuda", "Argentina",
	"Armenia", "Australia", "Austria", "Azerbaijan", "Bahamas", "Bahrain", "Bangladesh", "Barbados",
	"Belarus", "Belgium", "Belize", "Benin", "Bhutan", "Bolivia", "Bosnia and Herzegovina", "Botswana",
	"Brazil", "Brunei", "Bulgaria", "Burkina Faso", "Burundi", "Cabo Verde", "Cambodia", "Cameroon",
	"Canada", "Central African Republic", "Chad", "Chile", "China", "Colombia", "Comoros", "Congo",
	"Costa Rica", "Croatia", "Cuba", "Cyprus", "Czech Republic", "Democratic Republic of the Congo",
	"Denmark", "Djibouti", "Dominica", "Dominican Republic", "Ecuador", "Egypt", "El Salvador",
	"Equatorial Guinea", "Eritrea", "Estonia", "Eswatini", "Ethiopia", "Fiji", "Finland", "France",
	"Gabon", "Gambia", "Georgia", "Germany", "Ghana", "Greece", "Grenada", "Guatemala", "Guinea",
	"Guinea-Bissau", "Guyana", "Haiti", "Honduras", "Hungary", "Iceland", "India", "Indonesia", "Iran",
	"Iraq", "Ireland", "Israel", "Italy", "Ivory Coast", "Jamaica", "Japan", "Jordan", "Kazakhstan",
	"Kenya", "Kiribati", "Kosovo", "Kuwait", "Kyrgyzstan", "Laos", "Latvia", "Lebanon", "Lesotho",
	"Liberia", "Libya", "Liechtenstein", "Lithuania", "Luxembourg", "Madagascar", "Malawi", "Malaysia",
	"Maldives", "Mali", "Malta", "Marshall Islands", "Mauritania", "Mauritius", "Mexico", "Micronesia",
	"Moldova", "Monaco", "Mongolia", "Montenegro", "Morocco", "Mozambique", "Myanmar", "Namibia",
	"Nauru", "Nepal", "Netherlands", "New Zealand", "Nicaragua", "Niger", "Nigeria", "North Korea",
	"North Macedonia", "Norway", "Oman", "Pakistan", "Palau", "Palestine", "Panama",
	"Papua New Guinea", "Paraguay", "Peru", "Philippines", "Poland", "Portugal", "Qatar", "Romania",
	"Russia", "Rwanda", "Saint Kitts and Nevis", "Saint Lucia", "Saint Vincent and the Grenadines",
	"Samoa", "San Marino", "Sao Tome and Principe", "Saudi Arabia", "Senegal", "Serbia", "Seychelles",
	"Sierra Leone", "Singapore", "Slovakia", "Slovenia", "Solomon Islands", "Somalia", "South Africa",
	"South Korea", "South Sudan", "Spain", "Sri Lanka", "Sudan", "Suriname", "Sweden", "Switzerland",
	"Syria", "Taiwan", "Tajikistan", "Tanzania", "Thailand", "Timor-Leste", "Togo", "Tonga",
	"Trinidad and Tobago", "Tunisia", "Turkey", "Turkmenistan", "Tuvalu", "Uganda", "Ukraine",
	"United Arab Emirates", "United Kingdom", "United States", "Uruguay", "Uzbekistan", "Vanuatu",
	"Vatican City", "Venezuela", "Vietnam", "Yemen", "Zambia", "Zimbabwe",
}
