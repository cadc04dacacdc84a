// Package layouts holds the declarative per-issuer statement descriptions.
// Onboarding a new issuer is a configuration addition here, not new code.
package layouts

import "regexp"

// Canonical field names used by the column-rename mapping.
const (
	FieldDate         = "date"
	FieldAmount       = "amount"
	FieldBalance      = "balance"
	FieldCounterparty = "counterparty"
	FieldDescription  = "description"
	FieldCurrency     = "currency"
	FieldCategory     = "category"
)

// Pattern pairs a cell keyword with the capture regex applied on a hit.
type Pattern struct {
	Keyword string
	Capture *regexp.Regexp
}

// Layout is the pure-data description of one issuer's export format.
// It carries no behavior; every extraction step is parameterized by it.
type Layout struct {
	BankCode string
	BankName string

	// Header row detection
	HeaderKeywords []string
	MinHeaderHits  int

	// Account identity detection
	AccountName   Pattern
	AccountNumber Pattern

	// Column mapping: canonical field -> accepted label variants,
	// matched as substrings left-to-right, first match wins.
	FieldLabels map[string][]string

	// Currency normalization
	CurrencyAliases map[string]string
	DefaultCurrency string

	// Format flags (enumerated structural variants, not per-issuer code)
	MultiRowHeader bool
}

// Builtin returns the supported issuer layouts in registration order.
// Auto-detection probes them in exactly this order; the earlier entry wins
// when two layouts could both claim a file.
func Builtin() []Layout {
	return []Layout{
		{
			BankCode:       "CMB",
			BankName:       "招商银行",
			HeaderKeywords: []string{"交易日期", "记账日期", "交易金额", "金额", "余额"},
			MinHeaderHits:  2,
			AccountName: Pattern{
				Keyword: "户名",
				Capture: regexp.MustCompile(`户名[:：]?\s*([^\s,，]+)`),
			},
			AccountNumber: Pattern{
				Keyword: "账号",
				Capture: regexp.MustCompile(`(\d{10,20})`),
			},
			FieldLabels: map[string][]string{
				FieldDate:         {"交易日期", "记账日期", "交易时间"},
				FieldAmount:       {"交易金额", "金额"},
				FieldBalance:      {"联机余额", "余额"},
				FieldCounterparty: {"对手信息", "对方户名", "交易对手"},
				FieldDescription:  {"交易摘要", "摘要", "交易备注", "备注"},
				FieldCurrency:     {"币种", "货币"},
				FieldCategory:     {"交易分类"},
			},
			CurrencyAliases: defaultCurrencyAliases(),
			DefaultCurrency: "CNY",
		},
		{
			BankCode:       "BOC",
			BankName:       "中国银行",
			HeaderKeywords: []string{"记账日期", "交易日期", "交易金额", "账户余额", "对方账户名"},
			MinHeaderHits:  2,
			AccountName: Pattern{
				Keyword: "客户姓名",
				Capture: regexp.MustCompile(`客户姓名[:：]?\s*([^\s,，]+)`),
			},
			AccountNumber: Pattern{
				Keyword: "借记卡号",
				Capture: regexp.MustCompile(`(\d{10,20})`),
			},
			FieldLabels: map[string][]string{
				FieldDate:         {"记账日期", "交易日期"},
				FieldAmount:       {"交易金额", "金额"},
				FieldBalance:      {"账户余额", "余额"},
				FieldCounterparty: {"对方账户名", "对方户名"},
				FieldDescription:  {"业务摘要", "摘要", "附言"},
				FieldCurrency:     {"币别", "币种"},
			},
			CurrencyAliases: defaultCurrencyAliases(),
			DefaultCurrency: "CNY",
			MultiRowHeader:  true,
		},
		{
			BankCode:       "ICBC",
			BankName:       "工商银行",
			HeaderKeywords: []string{"交易日期", "发生额", "余额", "摘要"},
			MinHeaderHits:  2,
			AccountName: Pattern{
				Keyword: "户名",
				Capture: regexp.MustCompile(`户名[:：]?\s*([^\s,，]+)`),
			},
			AccountNumber: Pattern{
				Keyword: "卡号",
				Capture: regexp.MustCompile(`(\d{10,20})`),
			},
			FieldLabels: map[string][]string{
				FieldDate:         {"交易日期", "入账日期"},
				FieldAmount:       {"发生额", "交易金额"},
				FieldBalance:      {"余额"},
				FieldCounterparty: {"对方户名", "对方单位"},
				FieldDescription:  {"摘要", "注释"},
				FieldCurrency:     {"币种"},
			},
			CurrencyAliases: defaultCurrencyAliases(),
			DefaultCurrency: "CNY",
		},
		{
			BankCode:       "CCB",
			BankName:       "建设银行",
			HeaderKeywords: []string{"交易日期", "交易金额", "账户余额", "对方户名"},
			MinHeaderHits:  2,
			AccountName: Pattern{
				Keyword: "客户名称",
				Capture: regexp.MustCompile(`客户名称[:：]?\s*([^\s,，]+)`),
			},
			AccountNumber: Pattern{
				Keyword: "账号",
				Capture: regexp.MustCompile(`(\d{10,20})`),
			},
			FieldLabels: map[string][]string{
				FieldDate:         {"交易日期"},
				FieldAmount:       {"交易金额"},
				FieldBalance:      {"账户余额", "余额"},
				FieldCounterparty: {"对方户名", "对方账号与户名"},
				FieldDescription:  {"摘要", "备注"},
				FieldCurrency:     {"币种"},
			},
			CurrencyAliases: defaultCurrencyAliases(),
			DefaultCurrency: "CNY",
		},
	}
}

// defaultCurrencyAliases maps the free-text currency labels seen across
// issuer exports to ISO 4217 codes. Shared by all built-in layouts.
func defaultCurrencyAliases() map[string]string {
	return map[string]string{
		"人民币":  "CNY",
		"人民币元": "CNY",
		"RMB":  "CNY",
		"美元":   "USD",
		"美圆":   "USD",
		"港币":   "HKD",
		"港元":   "HKD",
		"欧元":   "EUR",
		"日元":   "JPY",
		"英镑":   "GBP",
	}
}

// StructuralLabels returns every configured label variant for the layout,
// used to recognize residual header artifacts inside the data region.
func (l *Layout) StructuralLabels() []string {
	var labels []string
	for _, variants := range l.FieldLabels {
		labels = append(labels, variants...)
	}
	return labels
}
