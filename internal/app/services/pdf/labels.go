package pdf

import (
	"fmt"

	"github.com/divan/num2words"
	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/app/domain/document"
)

// labels are the printed strings of one document language.
type labels struct {
	titles      map[document.Type]string
	client      string
	number      string
	date        string
	dueDate     string
	description string
	quantity    string
	unitPrice   string
	vatRate     string
	amount      string
	subtotal    string
	vat         string
	total       string
	inWords     string
	paymentInfo string
	bankAccount string
	notes       string
	page        string
	of          string
	currency    string
	thankYou    string
	eik         string
	vatNumber   string
	phone       string
	country     string
	wordsWhole  string
	wordsCents  string
}

var translations = map[string]labels{
	document.LanguageBG: {
		titles: map[document.Type]string{
			document.TypeInvoice:  "ФАКТУРА",
			document.TypeQuote:    "ОФЕРТА",
			document.TypeDelivery: "ДОСТАВНА РАЗПИСКА",
			document.TypeProforma: "ПРОФОРМА ФАКТУРА",
		},
		client: "Клиент", number: "Номер", date: "Дата", dueDate: "Падеж",
		description: "Описание", quantity: "Количество", unitPrice: "Ед. цена", vatRate: "ДДС %", amount: "Сума",
		subtotal: "Междинна сума", vat: "ДДС", total: "ОБЩО", inWords: "С думи",
		paymentInfo: "Информация за плащане", bankAccount: "Банкова сметка", notes: "Бележки",
		page: "Стр.", of: "от", currency: "лв.", thankYou: "Благодарим Ви за доверието!",
		eik: "ЕИК", vatNumber: "ДДС №", phone: "Тел", country: "България",
		wordsWhole: "лева", wordsCents: "стотинки",
	},
	document.LanguageES: {
		titles: map[document.Type]string{
			document.TypeInvoice:  "FACTURA",
			document.TypeQuote:    "PRESUPUESTO",
			document.TypeDelivery: "ALBARÁN",
			document.TypeProforma: "FACTURA PROFORMA",
		},
		client: "Cliente", number: "Número", date: "Fecha", dueDate: "Vencimiento",
		description: "Descripción", quantity: "Cantidad", unitPrice: "Precio unit.", vatRate: "IVA %", amount: "Importe",
		subtotal: "Subtotal", vat: "IVA", total: "TOTAL", inWords: "En letras",
		paymentInfo: "Información de pago", bankAccount: "Cuenta bancaria", notes: "Notas",
		page: "Pág.", of: "de", currency: "€", thankYou: "¡Gracias por su confianza!",
		eik: "EIK", vatNumber: "Nº IVA", phone: "Tel.", country: "Bulgaria",
		wordsWhole: "euros", wordsCents: "céntimos",
	},
	document.LanguageEN: {
		titles: map[document.Type]string{
			document.TypeInvoice:  "INVOICE",
			document.TypeQuote:    "QUOTE",
			document.TypeDelivery: "DELIVERY NOTE",
			document.TypeProforma: "PROFORMA INVOICE",
		},
		client: "Client", number: "Number", date: "Date", dueDate: "Due Date",
		description: "Description", quantity: "Quantity", unitPrice: "Unit Price", vatRate: "VAT %", amount: "Amount",
		subtotal: "Subtotal", vat: "VAT", total: "TOTAL", inWords: "In words",
		paymentInfo: "Payment Information", bankAccount: "Bank Account", notes: "Notes",
		page: "Page", of: "of", currency: "€", thankYou: "Thank you for your trust!",
		eik: "EIK", vatNumber: "VAT No.", phone: "Phone", country: "Bulgaria",
		wordsWhole: "euros", wordsCents: "cents",
	},
}

func labelsFor(language string) labels {
	if l, ok := translations[language]; ok {
		return l
	}
	return translations[document.LanguageBG]
}

func (l labels) title(t document.Type) string {
	if title, ok := l.titles[t]; ok {
		return title
	}
	return l.titles[document.TypeInvoice]
}

// AmountInWords spells out a total. English is written out in full, the other
// languages print the figures with the currency and cent names.
func AmountInWords(amount decimal.Decimal, language string) string {
	l := labelsFor(language)
	amount = amount.Round(2)
	whole := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(whole)).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if language == document.LanguageEN {
		return fmt.Sprintf("%s %s and %d %s", num2words.Convert(int(whole)), l.wordsWhole, cents, l.wordsCents)
	}
	return fmt.Sprintf("%d %s %d %s", whole, l.wordsWhole, cents, l.wordsCents)
}
