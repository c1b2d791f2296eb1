package relational

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
)

// queries holds SQL templates bound to a schema. Templates containing %[1]s
// take a placeholder list for an IN clause.
type queries struct {
	changes   map[domain.EntityKind]string
	changesAt map[domain.EntityKind]string

	filmsByPerson string
	filmsByGenre  string
	filmRows      string
	persons       string
	genres        string
}

func newQueries(schema string) queries {
	t := func(name string) string { return schema + "." + name }

	changes := func(table string) string {
		return fmt.Sprintf(`SELECT id, updated_at
			FROM %s
			WHERE updated_at > $1
			ORDER BY updated_at, id
			LIMIT $2`, t(table))
	}
	changesAt := func(table string) string {
		return fmt.Sprintf(`SELECT id, updated_at
			FROM %s
			WHERE updated_at = $1 AND id > $2
			ORDER BY id`, t(table))
	}

	return queries{
		changes: map[domain.EntityKind]string{
			domain.KindPerson: changes("person"),
			domain.KindGenre:  changes("genre"),
			domain.KindMovie:  changes("film_work"),
		},
		changesAt: map[domain.EntityKind]string{
			domain.KindPerson: changesAt("person"),
			domain.KindGenre:  changesAt("genre"),
			domain.KindMovie:  changesAt("film_work"),
		},
		filmsByPerson: `SELECT DISTINCT pfw.film_work_id
			FROM ` + t("person_film_work") + ` pfw
			WHERE pfw.person_id IN (%[1]s)`,
		filmsByGenre: `SELECT DISTINCT gfw.film_work_id
			FROM ` + t("genre_film_work") + ` gfw
			WHERE gfw.genre_id IN (%[1]s)`,
		filmRows: `SELECT fw.id AS film_id, fw.title, fw.description, fw.rating,
				pfw.person_role AS relation, p.id AS related_id, p.full_name AS related_name
			FROM ` + t("film_work") + ` fw
			LEFT JOIN ` + t("person_film_work") + ` pfw ON pfw.film_work_id = fw.id
			LEFT JOIN ` + t("person") + ` p ON p.id = pfw.person_id
			WHERE fw.id IN (%[1]s)
			UNION ALL
			SELECT fw.id AS film_id, fw.title, fw.description, fw.rating,
				'genre' AS relation, g.id AS related_id, g.name AS related_name
			FROM ` + t("film_work") + ` fw
			JOIN ` + t("genre_film_work") + ` gfw ON gfw.film_work_id = fw.id
			JOIN ` + t("genre") + ` g ON g.id = gfw.genre_id
			WHERE fw.id IN (%[1]s)
			ORDER BY film_id, relation, related_name`,
		persons: `SELECT id, full_name, birth_date
			FROM ` + t("person") + `
			WHERE id IN (%[1]s)
			ORDER BY id`,
		genres: `SELECT id, name, description
			FROM ` + t("genre") + `
			WHERE id IN (%[1]s)
			ORDER BY id`,
	}
}

// bindIn renders tmpl with $1..$n for ids and returns the matching args.
func bindIn(tmpl string, ids []string) (string, []any) {
	var sb strings.Builder
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(i + 1))
		args[i] = id
	}
	return fmt.Sprintf(tmpl, sb.String()), args
}

// chunk splits ids into slices of at most size elements.
func chunk(ids []string, size int) [][]string {
	if size <= 0 || len(ids) <= size {
		return [][]string{ids}
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		out = append(out, ids[start:min(start+size, len(ids))])
	}
	return out
}
