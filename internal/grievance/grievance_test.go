package grievance

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"griefpulse/pkg/contracts/domain"
)

func sampleTable() Table {
	return Table{
		Headers: []string{"Type_depot", "Statut_traitement", "Nature_plainte", "Catégorie", "Date_reception", "Nb_jour", "Communaute"},
		Rows: [][]string{
			{"Verbal", "En cours", "Foncier", "Sensible", "2024-01-15", "12", "Kara"},
			{"Ecrit", "Achevé", "Bruit", "Non sensible", "45366", "3,5", "Lomé"},
			{"Verbal", "Non traité", "Foncier", "Sensible", "03/06/2024", "", "Kara"},
			{"", "", "", "", "", "", ""},
			{"Ecrit", "Grief non récevable", "Emploi", "Non sensible", "pas de date", "7", "Sokodé"},
			{"Verbal", "Achevé", "Bruit", "Sensible", "2023-11-30", "20", "Lomé"},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("all required present", func(t *testing.T) {
		assert.NoError(t, Validate(sampleTable(), nil))
	})

	t.Run("accent and case insensitive headers", func(t *testing.T) {
		tbl := Table{Headers: []string{"type depot", "STATUT_TRAITEMENT", "Nature-plainte", " Categorie ", "Date_Réception"}}
		assert.NoError(t, Validate(tbl, nil))
	})

	for _, missing := range DefaultRequired {
		missing := missing
		t.Run("missing "+string(missing), func(t *testing.T) {
			tbl := sampleTable()
			idx := tbl.ColumnIndex(string(missing))
			require.GreaterOrEqual(t, idx, 0)
			tbl.Headers = append(append([]string{}, tbl.Headers[:idx]...), tbl.Headers[idx+1:]...)

			err := Validate(tbl, nil)
			var mce *MissingColumnsError
			require.ErrorAs(t, err, &mce)
			assert.Equal(t, []string{string(missing)}, mce.Missing)
			assert.Contains(t, err.Error(), string(missing))
		})
	}

	t.Run("reports every missing column", func(t *testing.T) {
		err := Validate(Table{Headers: []string{"Type_depot"}}, nil)
		var mce *MissingColumnsError
		require.ErrorAs(t, err, &mce)
		assert.Equal(t, []string{"Statut_traitement", "Nature_plainte", "Categorie", "Date_reception"}, mce.Missing)
	})
}

func TestParseFields(t *testing.T) {
	fields, err := ParseFields([]string{"Type_depot", " nb jour ", ""})
	require.NoError(t, err)
	assert.Equal(t, []domain.Field{domain.FieldDepositType, domain.FieldDurationDays}, fields)

	_, err = ParseFields([]string{"Inconnue"})
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"45366", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"03/06/2024", time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-15 10:30:00", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"2024", time.Time{}, false},
		{"pas de date", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseDate(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestParseDays(t *testing.T) {
	v, ok := ParseDays("3,5")
	assert.True(t, ok)
	assert.Equal(t, 3.5, v)

	_, ok = ParseDays("n/a")
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	t.Run("drop undated", func(t *testing.T) {
		records, stats := Load(sampleTable(), true)
		assert.Equal(t, 6, stats.RowsRead)
		assert.Equal(t, 1, stats.BlankRows)
		assert.Equal(t, 1, stats.UndatedRows)
		assert.Equal(t, 1, stats.DroppedRows)
		assert.Len(t, records, 4)
		for _, g := range records {
			assert.True(t, g.Dated())
		}
	})

	t.Run("keep undated", func(t *testing.T) {
		records, stats := Load(sampleTable(), false)
		assert.Equal(t, 0, stats.DroppedRows)
		require.Len(t, records, 5)
		assert.False(t, records[3].Dated())
		assert.Equal(t, 6, records[3].Row)
		assert.Equal(t, "Sokodé", records[3].Community)
	})

	t.Run("optional duration parsed", func(t *testing.T) {
		records, _ := Load(sampleTable(), true)
		require.NotNil(t, records[1].DurationDays)
		assert.Equal(t, 3.5, *records[1].DurationDays)
		assert.Nil(t, records[2].DurationDays)
	})
}

func TestDeriveConsistency(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []domain.Grievance
	for d := 0; d < 900; d += 7 {
		day := start.AddDate(0, 0, d)
		records = append(records, domain.Grievance{IntakeDate: &day})
	}

	derived, dropped := Derive(records, true)
	require.Zero(t, dropped)
	for _, g := range derived {
		assert.Equal(t, g.IntakeDate.Year(), g.Year)
		assert.Equal(t, g.Year, g.Month.Year())
		assert.Equal(t, 1, g.Month.Day())
		assert.Equal(t, QuarterOf(g.Month), g.Quarter, "month %s outside quarter %s", g.Month, g.Quarter)
		assert.Equal(t, g.Year, mustAtoi(t, g.Quarter[:4]))
	}
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	v, err := strconv.Atoi(s)
	require.NoError(t, err)
	return v
}

func TestQuarterOf(t *testing.T) {
	assert.Equal(t, "2024Q1", QuarterOf(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024Q2", QuarterOf(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024Q4", QuarterOf(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFilter(t *testing.T) {
	records, _ := Load(sampleTable(), false)

	t.Run("unconstrained keeps everything", func(t *testing.T) {
		assert.Equal(t, records, Filter(records, Selection{}))
	})

	t.Run("membership subset", func(t *testing.T) {
		sel := Selection{
			DepositTypes: []string{"Verbal"},
			Statuses:     []string{"En cours", "Achevé"},
		}
		got := Filter(records, sel)
		assert.LessOrEqual(t, len(got), len(records))
		require.Len(t, got, 2)
		for _, g := range got {
			assert.Contains(t, sel.DepositTypes, g.DepositType)
			assert.Contains(t, sel.Statuses, g.Status)
		}
	})

	t.Run("empty set selects nothing", func(t *testing.T) {
		assert.Empty(t, Filter(records, Selection{Natures: []string{}}))
	})

	t.Run("year excludes undated", func(t *testing.T) {
		got := Filter(records, Selection{Year: 2024})
		require.Len(t, got, 3)
		for _, g := range got {
			assert.Equal(t, 2024, g.Year)
		}
	})

	t.Run("quarter", func(t *testing.T) {
		got := Filter(records, Selection{Year: 2024, Quarter: "2024Q1"})
		require.Len(t, got, 2)
		assert.Equal(t, "Foncier", got[0].Nature)
		assert.Equal(t, "Bruit", got[1].Nature)
	})

	t.Run("preserves order", func(t *testing.T) {
		got := Filter(records, Selection{Communities: []string{"Lomé", "Kara"}})
		require.Len(t, got, 4)
		for i := 1; i < len(got); i++ {
			assert.Less(t, got[i-1].Row, got[i].Row)
		}
	})
}

func TestOptions(t *testing.T) {
	records, _ := Load(sampleTable(), false)
	opts := Options(records)

	assert.Equal(t, []string{"Verbal", "Ecrit"}, opts.Values[domain.FieldDepositType])
	assert.Equal(t, []string{"En cours", "Achevé", "Non traité", "Grief non récevable"}, opts.Values[domain.FieldStatus])
	assert.Equal(t, []int{2023, 2024}, opts.Years)
	assert.Equal(t, []string{"2023Q4", "2024Q1", "2024Q2"}, opts.Quarters)
	assert.Empty(t, opts.Values[domain.FieldSex])
}

func TestFold(t *testing.T) {
	assert.Equal(t, Fold("Grief non recevable"), Fold("  GRIEF   non  Récevable "))
	assert.Equal(t, "type_depot", NormalizeKey("Type dépôt"))
}
