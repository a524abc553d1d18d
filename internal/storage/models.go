package storage

import (
	"time"

	"github.com/liamashdown/arbscan/internal/market"
	"gorm.io/gorm"
)

// QuoteRow is one book's prices for one game as written by the ETL loader.
// Price columns are nullable; NULL means the book did not quote that side.
type QuoteRow struct {
	ID        int64    `gorm:"primaryKey;autoIncrement"`
	BookName  string   `gorm:"size:64;not null;index"`
	GameID    string   `gorm:"size:64;not null;index:idx_quotes_game"`
	Matchup   string   `gorm:"size:255"`
	GameDate  string   `gorm:"size:10;not null;index;index:idx_quotes_game"`
	MLPrice1  *float64 `gorm:"column:ml_price1;type:decimal(10,2)"`
	MLPrice2  *float64 `gorm:"column:ml_price2;type:decimal(10,2)"`
	SPPrice1  *float64 `gorm:"column:sp_price1;type:decimal(10,2)"`
	SPPrice2  *float64 `gorm:"column:sp_price2;type:decimal(10,2)"`
	OUPrice1  *float64 `gorm:"column:ou_price1;type:decimal(10,2)"`
	OUPrice2  *float64 `gorm:"column:ou_price2;type:decimal(10,2)"`
	CreatedTS int64    `gorm:"not null"`
}

func (QuoteRow) TableName() string {
	return "quotes"
}

// BeforeCreate hook for timestamps
func (q *QuoteRow) BeforeCreate(tx *gorm.DB) error {
	if q.CreatedTS == 0 {
		q.CreatedTS = time.Now().Unix()
	}
	return nil
}

// RawQuote converts the row into the scanner's input type
func (q QuoteRow) RawQuote() market.RawQuote {
	return market.RawQuote{
		BookName:  q.BookName,
		GameID:    q.GameID,
		Matchup:   q.Matchup,
		GameDate:  q.GameDate,
		Moneyline: market.PricePair{Price1: q.MLPrice1, Price2: q.MLPrice2},
		Spread:    market.PricePair{Price1: q.SPPrice1, Price2: q.SPPrice2},
		OverUnder: market.PricePair{Price1: q.OUPrice1, Price2: q.OUPrice2},
	}
}

// NewQuoteRow builds a row from a raw quote
func NewQuoteRow(q market.RawQuote) *QuoteRow {
	return &QuoteRow{
		BookName: q.BookName,
		GameID:   q.GameID,
		Matchup:  q.Matchup,
		GameDate: q.GameDate,
		MLPrice1: q.Moneyline.Price1,
		MLPrice2: q.Moneyline.Price2,
		SPPrice1: q.Spread.Price1,
		SPPrice2: q.Spread.Price2,
		OUPrice1: q.OverUnder.Price1,
		OUPrice2: q.OverUnder.Price2,
	}
}
