package utils

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ToDecimal 최소 단위 정수를 decimals 자리 소수로 변환 (wei -> ETH, lamports -> SOL, sat -> BTC)
func ToDecimal(raw *big.Int, decimals uint8) *big.Rat {
	if raw == nil {
		return new(big.Rat)
	}
	den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(raw, den)
}

// UnitsToFloat 최소 단위 정수를 float64 금액으로 변환
func UnitsToFloat(raw *big.Int, decimals uint8) float64 {
	f, _ := ToDecimal(raw, decimals).Float64()
	return f
}

// FormatUnits 최소 단위 정수를 사람이 읽는 문자열로 변환, maxDecimals 자리에서 절삭
func FormatUnits(raw *big.Int, decimals uint8, maxDecimals int) string {
	if raw == nil {
		return "0"
	}
	digits := raw.String()
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	d := int(decimals)
	if len(digits) <= d {
		digits = strings.Repeat("0", d-len(digits)+1) + digits
	}
	intPart := digits[:len(digits)-d]
	frac := trimFrac(digits[len(digits)-d:], maxDecimals)

	out := intPart
	if frac != "" {
		out += "." + frac
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

func trimFrac(frac string, maxDecimals int) string {
	if maxDecimals <= 0 {
		return ""
	}
	if len(frac) > maxDecimals {
		frac = frac[:maxDecimals]
	}
	return strings.TrimRight(frac, "0")
}

// ParseAmount 노드가 문자열로 돌려주는 금액 파싱 (음수 거부)
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	return v, nil
}

// ParseUnits 10진 문자열 최소 단위 파싱
func ParseUnits(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount %q", s)
	}
	return v, nil
}

// FormatFloat 금액 표시용, maxDecimals 자리 이후와 끝의 0 제거
func FormatFloat(v float64, maxDecimals int) string {
	s := strconv.FormatFloat(v, 'f', maxDecimals, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
