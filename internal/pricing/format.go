package pricing

import (
	"strconv"
	"strings"
)

// FormatVND renders 1008000 as "1.008.000 VNĐ".
func FormatVND(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	str := strconv.FormatInt(amount, 10)
	var out strings.Builder
	for i, c := range str {
		if i != 0 && (len(str)-i)%3 == 0 {
			out.WriteByte('.')
		}
		out.WriteRune(c)
	}
	return sign + out.String() + " VNĐ"
}
