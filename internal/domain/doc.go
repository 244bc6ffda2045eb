// Package domain models crisis news events and the rules that turn them into
// ticker items and watchlist mentions.
//
// # Data Source
//
// Events come from the scraper's events.json feed. Each record carries a
// title, description, URL, source, an upstream severity level and score, and
// an ISO-8601 published timestamp. Some mirrors serve the feed through a
// CORS proxy that wraps the payload as {"contents": "<json string>"}; see
// [ParseFeed].
//
// # Classification
//
// Text is "title description", lowercased. Categories are evaluated in a fixed
// order and the first match wins:
//
//	airline_disaster  aviation term AND (crash term OR severity term)
//	natural_disaster  earthquake, tsunami, hurricane, wildfire, flood, storm, ...
//	war               war, invasion, airstrike, missile, shelling, ceasefire, ...
//	terrorism         terror, bomb, bombing, suicide bomber, ied, ...
//	active_shooter    shooting, shooter, gunman, shots fired, ...
//	mass_casualty     "mass casualty" / "death toll" wording, or a casualty
//	                  count ("killed 12", "deaths: 40") >= threshold
//	stock_swing       finance term AND a percentage (up to three digits)
//	                  whose magnitude is >= threshold
//
// Specific categories come first so that a plane crash with fatalities is
// never reported as a generic mass-casualty event. Events that already carry
// ticker_label and ticker_category skip classification.
//
// # Ticker Selection
//
// [SelectTickerItems] walks the feed in order (the feed is reverse
// chronological and is not re-sorted), drops stale events, classifies the
// rest, applies the stock-swing rules, de-duplicates by normalized label and
// stops at max_items. Insertion order is preserved.
//
// Freshness:
//
//	general:     age <= freshness_hours (default 72); missing or unparseable
//	             timestamps count as fresh
//	stock_swing: additionally age <= 12h; missing or unparseable timestamps
//	             count as stale
//
// # Watchlist
//
// A watchlist holds up to five tickers or company names. Ticker entries expand
// to known brand synonyms (KO -> Coca-Cola, Coke). Matching is whole-word and
// case-insensitive. Stock-swing headlines that mention a watchlist symbol are
// kept off the ticker because live prices already cover them.
package domain
