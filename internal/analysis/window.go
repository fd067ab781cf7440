// SPDX-License-Identifier: MIT
package analysis

import (
	"strings"

	applog "tempo/internal/log"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the window applied before the FFT.
type WindowFunc int

const (
	Blackman WindowFunc = iota
	BartlettHann
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

func (w WindowFunc) String() string {
	switch w {
	case Blackman:
		return "Blackman"
	case BartlettHann:
		return "BartlettHann"
	case BlackmanNuttall:
		return "BlackmanNuttall"
	case Hann:
		return "Hann"
	case Hamming:
		return "Hamming"
	case Lanczos:
		return "Lanczos"
	case Nuttall:
		return "Nuttall"
	default:
		return "Unknown"
	}
}

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc. Unknown
// names return Blackman and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "blackman":
		return Blackman, nil
	case "bartletthann":
		return BartlettHann, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Blackman, errors.Wrapf(ErrConfiguration, "unknown window function %q", name)
	}
}

// windowCoefficients returns n coefficients of the selected window.
func windowCoefficients(n int, w WindowFunc) []float64 {
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch w {
	case Blackman:
		window.Blackman(coeffs)
	case BartlettHann:
		window.BartlettHann(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		applog.Warnf("Analysis: unknown window function %d, using Blackman", w)
		window.Blackman(coeffs)
	}
	return coeffs
}
