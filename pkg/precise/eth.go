package precise

import (
	"encoding/json"
	"math/big"
)

const (
	precision = 256
	decimals  = 18
)

// ETH is an arbitrary-precision amount of Ether. Gas accounting sums many
// small fees, so float64 would accumulate drift; this keeps 256 bits of
// mantissa and only rounds at render time.
type ETH big.Float

func NewETH(f *big.Float) *ETH {
	if f == nil {
		f = new(big.Float)
	} else {
		f = new(big.Float).Copy(f)
	}
	return (*ETH)(f.SetPrec(precision))
}

func ParseETH(s string) (*ETH, error) {
	f, _, err := new(big.Float).SetPrec(precision).Parse(s, 10)
	if err != nil {
		return nil, err
	}
	return NewETH(f), nil
}

func (e *ETH) Float() *big.Float {
	return (*big.Float)(e)
}

func (e *ETH) Add(a, b *ETH) *ETH {
	e.Float().Add((*big.Float)(a), (*big.Float)(b))
	return e
}

func (e *ETH) Cmp(other *ETH) int {
	return e.Float().Cmp(other.Float())
}

func (e *ETH) Sign() int {
	return e.Float().Sign()
}

func (e *ETH) String() string {
	return e.Float().Text('f', decimals)
}

// Text renders the amount with the given number of decimal places.
func (e *ETH) Text(decimals int) string {
	return e.Float().Text('f', decimals)
}

func (e *ETH) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *ETH) UnmarshalText(data []byte) error {
	v, _, err := new(big.Float).SetPrec(precision).Parse(string(data), 10)
	if err != nil {
		return err
	}
	*e = *NewETH(v)
	return nil
}

func (e *ETH) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *ETH) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return e.UnmarshalText([]byte(v))
}

func (e *ETH) Wei() *big.Int {
	wei := new(big.Int)
	copy := new(big.Float).Copy(e.Float())
	copy.Mul(copy, big.NewFloat(1e18))
	copy.Int(wei)
	return wei
}

func (e *ETH) SetWei(wei *big.Int) *ETH {
	e.Float().SetInt(wei)
	e.Float().Quo(e.Float(), big.NewFloat(1e18))
	return e
}
