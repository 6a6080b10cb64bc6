// Package migration upgrades stored network collections to the current
// schema.
//
// Each schema change is a Step: a pure transform from one Collection to the
// next, tagged with the application version that introduced it. Migrate
// applies, in order, every step newer than the collection's stored version,
// re-derives network paths from their IDs and stamps the current version.
//
//	m, err := migration.New(migration.CurrentVersion, networksRoot)
//	upgraded, report, err := m.Migrate(stored)
//
// Migrate never mutates its input, and migrating an already current
// collection returns an equal collection.
package migration
