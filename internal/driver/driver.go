// Package driver replays line-oriented scripts of catalog commands.
//
// Each line holds one command and its whitespace separated arguments; text
// after '#' is ignored:
//
//	Insert 22 19.97 475 1238 9742
//	FindMinPrice 475
//	PriceHike 1 100 5.5
//	End
//
// Tag lists run to the end of the line unless WithZeroTerminatedLists is set,
// in which case a 0 closes the list and anything after it is ignored.
package driver

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"MiniCatalog/internal/catalog"
	"MiniCatalog/internal/money"
)

// Summary describes a completed run. Checksum adds up integer results and
// money results in cents.
type Summary struct {
	Commands int
	Checksum int64
}

type Driver struct {
	cat *catalog.Catalog
	out io.Writer
	log *zap.Logger

	zeroTerminated bool
}

type Option func(*Driver)

// WithZeroTerminatedLists ends Insert and RemoveNames tag lists at the first
// 0, so scripts written as "Insert 22 19.97 475 1238 0" never store tag 0.
func WithZeroTerminatedLists() Option {
	return func(d *Driver) { d.zeroTerminated = true }
}

// New writes one result line per command to out; out may be nil.
func New(cat *catalog.Catalog, out io.Writer, log *zap.Logger, opts ...Option) *Driver {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Driver{cat: cat, out: out, log: log}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes r until EOF or an End command and stops at the first bad line.
func (d *Driver) Run(r io.Reader) (Summary, error) {
	var sum Summary

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++

		text, _, _ := strings.Cut(sc.Text(), "#")
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if strings.EqualFold(fields[0], "End") {
			break
		}

		res, err := d.exec(fields[0], fields[1:])
		if err != nil {
			return sum, &LineError{Line: line, Command: fields[0], Err: err}
		}

		sum.Commands++
		sum.Checksum += res.checksum()
		if _, err := fmt.Fprintln(d.out, res); err != nil {
			return sum, fmt.Errorf("write result: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return sum, fmt.Errorf("read script: %w", err)
	}

	d.log.Info("script finished", zap.Int("commands", sum.Commands), zap.Int64("checksum", sum.Checksum))
	return sum, nil
}

type result struct {
	n     int64
	price money.Money
	money bool
}

func (r result) checksum() int64 {
	if r.money {
		return r.price.Cents()
	}
	return r.n
}

func (r result) String() string {
	if r.money {
		return r.price.String()
	}
	return strconv.FormatInt(r.n, 10)
}

func intResult(n int64) result { return result{n: n} }

func moneyResult(m money.Money) result { return result{price: m, money: true} }

func (d *Driver) exec(cmd string, args []string) (result, error) {
	switch strings.ToLower(cmd) {
	case "insert":
		if len(args) < 2 {
			return result{}, errArity
		}
		id, err := parseInt(args[0])
		if err != nil {
			return result{}, err
		}
		price, err := money.Parse(args[1])
		if err != nil {
			return result{}, err
		}
		tags, err := d.tagList(args[2:])
		if err != nil {
			return result{}, err
		}
		if d.cat.Insert(id, price, tags) {
			return intResult(1), nil
		}
		return intResult(0), nil

	case "find":
		id, err := oneInt(args)
		if err != nil {
			return result{}, err
		}
		return moneyResult(d.cat.Find(id)), nil

	case "delete":
		id, err := oneInt(args)
		if err != nil {
			return result{}, err
		}
		return intResult(d.cat.Delete(id)), nil

	case "findminprice":
		tag, err := oneInt(args)
		if err != nil {
			return result{}, err
		}
		return moneyResult(d.cat.FindMinPrice(tag)), nil

	case "findmaxprice":
		tag, err := oneInt(args)
		if err != nil {
			return result{}, err
		}
		return moneyResult(d.cat.FindMaxPrice(tag)), nil

	case "findpricerange":
		if len(args) != 3 {
			return result{}, errArity
		}
		tag, err := parseInt(args[0])
		if err != nil {
			return result{}, err
		}
		low, err := money.Parse(args[1])
		if err != nil {
			return result{}, err
		}
		high, err := money.Parse(args[2])
		if err != nil {
			return result{}, err
		}
		return intResult(int64(d.cat.FindPriceRange(tag, low, high))), nil

	case "pricehike":
		if len(args) != 3 {
			return result{}, errArity
		}
		ids, err := parseInts(args[:2])
		if err != nil {
			return result{}, err
		}
		rate, err := strconv.ParseFloat(args[2], 64)
		if err != nil || math.IsNaN(rate) || math.IsInf(rate, 0) {
			return result{}, fmt.Errorf("bad rate %q", args[2])
		}
		return moneyResult(d.cat.PriceHike(ids[0], ids[1], rate)), nil

	case "removenames", "removetags":
		if len(args) < 1 {
			return result{}, errArity
		}
		id, err := parseInt(args[0])
		if err != nil {
			return result{}, err
		}
		tags, err := d.tagList(args[1:])
		if err != nil {
			return result{}, err
		}
		return intResult(d.cat.RemoveTags(id, tags)), nil
	}

	return result{}, errUnknownCommand
}

func (d *Driver) tagList(args []string) ([]int64, error) {
	tags := make([]int64, 0, len(args))
	for _, s := range args {
		v, err := parseInt(s)
		if err != nil {
			return nil, err
		}
		if v == 0 && d.zeroTerminated {
			break
		}
		tags = append(tags, v)
	}
	return tags, nil
}

func oneInt(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errArity
	}
	return parseInt(args[0])
}

func parseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad integer %q", s)
	}
	return v, nil
}

func parseInts(ss []string) ([]int64, error) {
	out := make([]int64, 0, len(ss))
	for _, s := range ss {
		v, err := parseInt(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
