package database

// Schema defines every table of the engine. Money columns (cash_balance,
// avg_price, amount) are stored as TEXT so decimal amounts round-trip exactly;
// shares are whole integers.
const Schema = `
CREATE TABLE IF NOT EXISTS portfolios (
    id INTEGER PRIMARY KEY,
    user_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    cash_balance TEXT NOT NULL DEFAULT '0',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_portfolios_user ON portfolios(user_id);

CREATE TABLE IF NOT EXISTS holdings (
    id INTEGER PRIMARY KEY,
    portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
    symbol TEXT NOT NULL,
    shares INTEGER NOT NULL CHECK (shares > 0),
    avg_price TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE (portfolio_id, symbol)
);

CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY,
    portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
    amount TEXT NOT NULL,
    detail TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_portfolio ON transactions(portfolio_id);

CREATE TABLE IF NOT EXISTS stock_symbols (
    symbol TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS stocks (
    id INTEGER PRIMARY KEY,
    symbol TEXT NOT NULL,
    date TEXT NOT NULL,
    open REAL NOT NULL,
    high REAL NOT NULL,
    low REAL NOT NULL,
    close REAL NOT NULL,
    volume INTEGER NOT NULL,
    UNIQUE (symbol, date)
);

CREATE INDEX IF NOT EXISTS idx_stocks_symbol_date ON stocks(symbol, date);
CREATE INDEX IF NOT EXISTS idx_stocks_date ON stocks(date);

CREATE TABLE IF NOT EXISTS statistics_cache (
    portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    symbol TEXT NOT NULL,
    cov REAL,
    beta REAL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (portfolio_id, start_date, end_date, symbol)
);

CREATE TABLE IF NOT EXISTS portfolio_snapshots (
    portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
    date TEXT NOT NULL,
    total_value REAL NOT NULL,
    cash_balance REAL NOT NULL,
    holdings_value REAL NOT NULL,
    position_count INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (portfolio_id, date)
);
`
