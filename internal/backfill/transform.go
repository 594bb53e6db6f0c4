package backfill

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dvloznov/money-manager/internal/domain"
)

// transformModelOutput converts the model's JSON array into bank raw
// records for the given account. Amounts stay strings: the normalizer
// owns amount parsing and its error taxonomy.
func transformModelOutput(parsed []interface{}, account string) ([]domain.RawRecord, error) {
	records := make([]domain.RawRecord, 0, len(parsed))

	for i, item := range parsed {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("transformModelOutput: element %d is %T, want map[string]interface{}", i, item)
		}

		dateStr, err := getStringField(obj, "date", true)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		desc, err := getStringField(obj, "description", true)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		amount, err := getFloat64Field(obj, "amount", true)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txnTypePtr, err := getOptionalStringField(obj, "type")
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txnType := ""
		if txnTypePtr != nil {
			txnType = *txnTypePtr
		}

		postDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: invalid date %q: %w", i, dateStr, err)
		}

		records = append(records, domain.RawRecord{
			PostDate:    postDate,
			Account:     account,
			Amount:      strconv.FormatFloat(amount, 'f', 2, 64),
			Description: desc,
			Type:        txnType,
		})
	}

	return records, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q is %T, want string", key, v)
	}
	return s, nil
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("field %q is %T, want string or null", key, v)
	}
	return &s, nil
}

func getFloat64Field(m map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := m[key]
	if !ok {
		if required {
			return 0, fmt.Errorf("missing required field %q", key)
		}
		return 0, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("field %q is %T, want number", key, v)
	}
	return f, nil
}
