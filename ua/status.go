package ua

import "fmt"

// StatusCode is the numeric outcome of a single operation item. The top two
// bits carry the severity (00 good, 01 uncertain, 10 bad).
type StatusCode uint32

const (
	Good StatusCode = 0x00000000

	BadInternalError              StatusCode = 0x80020000
	BadNothingToDo                StatusCode = 0x800F0000
	BadNodeIDInvalid              StatusCode = 0x80330000
	BadNodeIDUnknown              StatusCode = 0x80340000
	BadAttributeIDInvalid         StatusCode = 0x80350000
	BadIndexRangeInvalid          StatusCode = 0x80360000
	BadIndexRangeNoData           StatusCode = 0x80370000
	BadDataEncodingInvalid        StatusCode = 0x80380000
	BadDataEncodingUnsupported    StatusCode = 0x80390000
	BadNotReadable                StatusCode = 0x803A0000
	BadNotImplemented             StatusCode = 0x80400000
	BadContinuationPointInvalid   StatusCode = 0x804A0000
	BadNoContinuationPoints       StatusCode = 0x804B0000
	BadReferenceTypeIDInvalid     StatusCode = 0x804C0000
	BadBrowseDirectionInvalid     StatusCode = 0x804D0000
	BadBrowseNameInvalid          StatusCode = 0x80600000
	BadNoMatch                    StatusCode = 0x806F0000
	BadTypeMismatch               StatusCode = 0x80740000
	BadMethodInvalid              StatusCode = 0x80750000
	BadArgumentsMissing           StatusCode = 0x80760000
	BadTooManyArguments           StatusCode = 0x80E50000
	UncertainReferenceOutOfServer StatusCode = 0x406C0000
)

var statusNames = map[StatusCode]string{
	Good:                          "Good",
	BadInternalError:              "BadInternalError",
	BadNothingToDo:                "BadNothingToDo",
	BadNodeIDInvalid:              "BadNodeIdInvalid",
	BadNodeIDUnknown:              "BadNodeIdUnknown",
	BadAttributeIDInvalid:         "BadAttributeIdInvalid",
	BadIndexRangeInvalid:          "BadIndexRangeInvalid",
	BadIndexRangeNoData:           "BadIndexRangeNoData",
	BadDataEncodingInvalid:        "BadDataEncodingInvalid",
	BadDataEncodingUnsupported:    "BadDataEncodingUnsupported",
	BadNotReadable:                "BadNotReadable",
	BadNotImplemented:             "BadNotImplemented",
	BadContinuationPointInvalid:   "BadContinuationPointInvalid",
	BadNoContinuationPoints:       "BadNoContinuationPoints",
	BadReferenceTypeIDInvalid:     "BadReferenceTypeIdInvalid",
	BadBrowseDirectionInvalid:     "BadBrowseDirectionInvalid",
	BadBrowseNameInvalid:          "BadBrowseNameInvalid",
	BadNoMatch:                    "BadNoMatch",
	BadTypeMismatch:               "BadTypeMismatch",
	BadMethodInvalid:              "BadMethodInvalid",
	BadArgumentsMissing:           "BadArgumentsMissing",
	BadTooManyArguments:           "BadTooManyArguments",
	UncertainReferenceOutOfServer: "UncertainReferenceOutOfServer",
}

// IsGood reports whether the severity bits are "good".
func (c StatusCode) IsGood() bool { return c&0xC0000000 == 0 }

// IsUncertain reports whether the severity bits are "uncertain".
func (c StatusCode) IsUncertain() bool { return c&0xC0000000 == 0x40000000 }

// IsBad reports whether the severity bits are "bad".
func (c StatusCode) IsBad() bool { return c&0x80000000 != 0 }

func (c StatusCode) String() string {
	if name, ok := statusNames[c]; ok {
		return name
	}
	return fmt.Sprintf("StatusCode(0x%08X)", uint32(c))
}

// Error makes StatusCode usable as an error value. A collaborator returning a
// StatusCode as its error reports a protocol outcome, not an internal fault.
func (c StatusCode) Error() string { return c.String() }
