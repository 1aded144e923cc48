package terpel

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawStation is one record from the Terpel map-points feed. The feed is
// loosely typed: any field may be missing and numeric values arrive as
// bare numbers or quoted strings depending on the record.
type RawStation struct {
	Name       string      `json:"nom"`
	Address    string      `json:"dir"`
	City       string      `json:"ciu"`
	Department string      `json:"dep"`
	Country    string      `json:"pai"`
	Lat        Scalar      `json:"lat"`
	Lon        Scalar      `json:"lon"`
	Prices     []RawPrice  `json:"price"`
	Services   []NamedItem `json:"services"`
	Programs   []NamedItem `json:"programs"`
}

// RawPrice is one (product, price) pair as served by the feed.
type RawPrice struct {
	ProductName string `json:"productName"`
	RetailPrice Scalar `json:"retailPrice"`
}

// NamedItem labels a service or loyalty program offered at a station.
type NamedItem struct {
	Name string `json:"name"`
}

// Scalar holds a JSON value the feed serves inconsistently as either a
// bare number or a quoted string. It keeps the original text so ids can
// be derived from the value exactly as received.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	*s = Scalar(data)
	return nil
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (s Scalar) String() string { return string(s) }

// Float64 converts the scalar, accepting a decimal comma.
func (s Scalar) Float64() (float64, error) {
	return strconv.ParseFloat(strings.Replace(string(s), ",", ".", 1), 64)
}
