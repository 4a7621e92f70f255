package utils

import (
	"strings"

	prt "github.com/sgawallet/sga-wallet/protocol"
)

// "conn:"
// [Usage Pattern 1] conn:Family:Address = Specific connection
// [Usage Pattern 2] conn:Family: = All connections of a family
// [Usage Pattern 3] conn: = All connections
func GetConnectionKey(family prt.Family, address string) []byte {
	return []byte(prt.PrefixConnection + family.String() + ":" + address)
}

func GetConnectionPrefix(family prt.Family) []byte {
	if family == "" {
		return []byte(prt.PrefixConnection)
	}
	return []byte(prt.PrefixConnection + family.String() + ":")
}

// "basis:"
// basis:Family:Address:SYMBOL = cost basis of one holding
func GetCostBasisKey(family prt.Family, address, symbol string) []byte {
	return []byte(prt.PrefixCostBasis + family.String() + ":" + address + ":" + strings.ToUpper(symbol))
}

func GetCostBasisPrefix(family prt.Family, address string) []byte {
	return []byte(prt.PrefixCostBasis + family.String() + ":" + address + ":")
}

// "meta:schema"
func GetSchemaKey() []byte {
	return []byte(prt.PrefixMetaSchema)
}
