package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/vinodismyname/mcpsheets/pkg/pagination"
)

// MaxSheetNameLen is the workbook limit on sheet name length.
const MaxSheetNameLen = 31

var (
	v    *validator.Validate
	once sync.Once

	sheetExts    = []string{".csv", ".xlsx", ".xlsm", ".xls"}
	workbookExts = []string{".xlsx", ".xlsm"}
)

// Validator returns a singleton validator with custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New()
		// Readable spreadsheet path
		_ = v.RegisterValidation("sheet_path", func(fl validator.FieldLevel) bool {
			return hasExt(fl.Field().String(), sheetExts)
		})
		// Writable workbook path
		_ = v.RegisterValidation("workbook_path", func(fl validator.FieldLevel) bool {
			return hasExt(fl.Field().String(), workbookExts)
		})
		_ = v.RegisterValidation("sheet_name", func(fl validator.FieldLevel) bool {
			return ValidSheetName(fl.Field().String())
		})
		// Cursor must be decodable via pagination.DecodeCursor
		_ = v.RegisterValidation("cursor", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true // empty is allowed; use omitempty with this tag
			}
			_, err := pagination.DecodeCursor(s)
			return err == nil
		})
	})
	return v
}

// ValidSheetName reports whether name is usable as a worksheet name: non-blank,
// at most 31 characters, none of []:*?/\ and not wrapped in apostrophes.
func ValidSheetName(name string) bool {
	if strings.TrimSpace(name) == "" || utf8.RuneCountInString(name) > MaxSheetNameLen {
		return false
	}
	if strings.ContainsAny(name, `[]:*?/\`) {
		return false
	}
	return !strings.HasPrefix(name, "'") && !strings.HasSuffix(name, "'")
}

func hasExt(s string, exts []string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	ext := strings.ToLower(filepath.Ext(s))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// ValidateStruct validates a struct and returns a user-friendly error string
// suitable for MCP tool errors. Returns empty string when valid.
func ValidateStruct(s any) string {
	err := Validator().Struct(s)
	if err == nil {
		return ""
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "VALIDATION: invalid inputs"
	}
	fe := ve[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("VALIDATION: %s is required", field)
	case "sheet_path":
		return "VALIDATION: path must be a spreadsheet file (" + strings.Join(sheetExts, ", ") + ")"
	case "workbook_path":
		return "VALIDATION: path must be an Excel workbook (" + strings.Join(workbookExts, ", ") + ")"
	case "sheet_name":
		return fmt.Sprintf("VALIDATION: %s must be 1-%d characters without []:*?/\\", field, MaxSheetNameLen)
	case "cursor":
		return "CURSOR_INVALID: failed to decode cursor; restart pagination without a cursor"
	case "oneof":
		return fmt.Sprintf("VALIDATION: %s must be one of [%s]", field, fe.Param())
	case "min", "max", "gte", "lte":
		return fmt.Sprintf("VALIDATION: %s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("VALIDATION: invalid %s", field)
}
