package od

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertOdToSdoAbortKnownCodes(t *testing.T) {
	assert.Equal(t, AbortTypeMismatch, ConvertOdToSdoAbort(ErrTypeMismatch))
	assert.Equal(t, AbortDataLong, ConvertOdToSdoAbort(ErrDataLong))
	assert.Equal(t, AbortSubUnknown, ConvertOdToSdoAbort(ErrSubNotExist))
	assert.Equal(t, AbortUnsupportedAccess, ConvertOdToSdoAbort(ErrUnsuppAccess))
}

func TestConvertOdToSdoAbortUnknownFallsBackToDeviceIncompat(t *testing.T) {
	assert.Equal(t, AbortDeviceIncompat, ConvertOdToSdoAbort(ErrPartial))
	assert.Equal(t, AbortDeviceIncompat, ConvertOdToSdoAbort(ODR(100)))
}

func TestAbortCodeIsTotalOverEveryErrorConstant(t *testing.T) {
	for odErr := range odrDescription {
		abortCode := ConvertOdToSdoAbort(odErr)
		assert.NotEqual(t, SDOAbortCode(0), abortCode)
	}
}

func TestAbortCodeDescriptionFallsBackToGeneral(t *testing.T) {
	unknown := SDOAbortCode(0xDEADBEEF)
	assert.Equal(t, abortCodeDescriptionMap[AbortGeneral], unknown.Description())
}
