/*
Package store persists markov models in a SQL database.

Models are stored by name together with their order. Every context and every
continuation keeps its position, so a model loaded back from the database
samples and exports exactly like the model that was saved. The schema targets
SQLite; both github.com/mattn/go-sqlite3 and modernc.org/sqlite work.
*/
package store
