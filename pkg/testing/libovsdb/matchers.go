package libovsdb

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mitchellh/copystructure"
	"github.com/onsi/gomega"
	gomegaformat "github.com/onsi/gomega/format"
	gomegatypes "github.com/onsi/gomega/types"
	libovsdbclient "github.com/ovn-kubernetes/libovsdb/client"
)

// sets come back from the database in no particular order and empty
// columns may be either nil or empty
var testDataCmpOptions = []cmp.Option{
	cmpopts.EquateEmpty(),
	cmpopts.SortSlices(func(a, b string) bool { return a < b }),
}

// ignoreUUIDField ignores the struct fields tagged with `ovsdb:"_uuid"`
var ignoreUUIDField = cmp.FilterPath(func(p cmp.Path) bool {
	sf, ok := p.Last().(cmp.StructField)
	if !ok {
		return false
	}
	field, ok := p.Index(-2).Type().FieldByName(sf.Name())
	return ok && field.Tag.Get("ovsdb") == "_uuid"
}, cmp.Ignore())

func cmpOptions(ignoreUUID bool) []cmp.Option {
	if ignoreUUID {
		return append([]cmp.Option{ignoreUUIDField}, testDataCmpOptions...)
	}
	return testDataCmpOptions
}

func testDataEqual(x, y TestData, ignoreUUID bool) bool {
	if reflect.TypeOf(x) != reflect.TypeOf(y) {
		return false
	}
	return cmp.Equal(x, y, cmpOptions(ignoreUUID)...)
}

func copyTestData(data []TestData) []TestData {
	return copystructure.Must(copystructure.Copy(data)).([]TestData)
}

// maskFields zeroes, in both x and y, the columns of x holding a value for
// which unresolved returns true
func maskFields(x, y TestData, unresolved func(string) bool) {
	vx := reflect.ValueOf(x).Elem()
	vy := reflect.ValueOf(y).Elem()
	for i, n := 0, vx.NumField(); i < n; i++ {
		if vx.Type().Field(i).Tag.Get("ovsdb") == "_uuid" {
			continue
		}
		masked := false
		switch f := vx.Field(i).Interface().(type) {
		case string:
			masked = unresolved(f)
		case *string:
			masked = f != nil && unresolved(*f)
		case []string:
			for _, s := range f {
				masked = masked || unresolved(s)
			}
		case map[string]string:
			for k, v := range f {
				masked = masked || unresolved(k) || unresolved(v)
			}
		}
		if masked {
			vx.Field(i).Set(reflect.Zero(vx.Field(i).Type()))
			vy.Field(i).Set(reflect.Zero(vy.Field(i).Type()))
		}
	}
}

// resolveNamedUUIDs maps the named uuids given to expected rows to the
// uuids of the actual rows they match, and rewrites expected with them.
// Rows are matched on every column that does not reference a row still
// unresolved, so references resolve bottom up.
func resolveNamedUUIDs(expected, actual []TestData) {
	named := map[string]bool{}
	for _, e := range expected {
		if uuid, _ := getUUID(e); uuid != "" && !validUUID.MatchString(uuid) {
			named[uuid] = true
		}
	}
	mapping := map[string]string{}
	claimed := map[string]bool{}
	mapFrom := func(s string, _ int) string {
		if real, ok := mapping[s]; ok {
			return real
		}
		return s
	}
	unresolved := func(s string) bool {
		_, ok := mapping[s]
		return named[s] && !ok
	}

	for progress := true; progress; {
		progress = false
		var ambiguousFrom, ambiguousTo string
		for _, e := range expected {
			uuid, _ := getUUID(e)
			if !named[uuid] || mapping[uuid] != "" {
				continue
			}
			candidates := []string{}
			for _, a := range actual {
				realUUID, _ := getUUID(a)
				if claimed[realUUID] || reflect.TypeOf(a) != reflect.TypeOf(e) {
					continue
				}
				pair := copyTestData([]TestData{e, a})
				replaceUUIDs(pair[0], mapFrom)
				maskFields(pair[0], pair[1], unresolved)
				if testDataEqual(pair[0], pair[1], true) {
					candidates = append(candidates, realUUID)
				}
			}
			switch {
			case len(candidates) == 1:
				mapping[uuid] = candidates[0]
				claimed[candidates[0]] = true
				progress = true
			case len(candidates) > 1 && ambiguousFrom == "":
				ambiguousFrom, ambiguousTo = uuid, candidates[0]
			}
		}
		if !progress && ambiguousFrom != "" {
			// identical rows, any pairing will do
			mapping[ambiguousFrom] = ambiguousTo
			claimed[ambiguousTo] = true
			progress = true
		}
	}

	for _, e := range expected {
		replaceUUIDs(e, mapFrom)
	}
}

type testDataMatcher struct {
	expected   []TestData
	ignoreUUID bool
	exact      bool

	missing    []TestData
	unexpected []TestData
	closest    map[int]TestData
}

// HaveData matches a libovsdb client whose cache holds exactly the expected
// rows. Named uuids of expected rows are resolved against the cache.
func HaveData(expected ...TestData) gomegatypes.GomegaMatcher {
	return newTestDataMatcher(expected, false, true)
}

// HaveDataIgnoringUUIDs is like HaveData but ignores row uuids, for rows
// that do not reference each other
func HaveDataIgnoringUUIDs(expected ...TestData) gomegatypes.GomegaMatcher {
	return newTestDataMatcher(expected, true, true)
}

// ContainData matches a libovsdb client whose cache holds at least the
// expected rows
func ContainData(expected ...TestData) gomegatypes.GomegaMatcher {
	return newTestDataMatcher(expected, false, false)
}

// HaveEmptyData matches a libovsdb client with an empty cache
func HaveEmptyData() gomegatypes.GomegaMatcher {
	transform := func(client libovsdbclient.Client) []TestData {
		return getTestDataFromClientCache(client)
	}
	return gomega.WithTransform(transform, gomega.BeEmpty())
}

func newTestDataMatcher(expected []TestData, ignoreUUID, exact bool) *testDataMatcher {
	if len(expected) == 1 {
		if e, ok := expected[0].([]TestData); ok {
			// flatten
			expected = e
		}
	}
	return &testDataMatcher{
		expected:   expected,
		ignoreUUID: ignoreUUID,
		exact:      exact,
	}
}

func (matcher *testDataMatcher) Match(actual interface{}) (bool, error) {
	client, ok := actual.(libovsdbclient.Client)
	if !ok {
		return false, fmt.Errorf("HaveData matcher expects a libovsdb client, got %T", actual)
	}
	actualData := getTestDataFromClientCache(client)
	expected := copyTestData(matcher.expected)
	if !matcher.ignoreUUID {
		resolveNamedUUIDs(expected, actualData)
	}

	matcher.missing = nil
	matcher.closest = map[int]TestData{}
	remaining := append([]TestData{}, actualData...)
	for _, e := range expected {
		found := -1
		for i, a := range remaining {
			if testDataEqual(e, a, matcher.ignoreUUID) {
				found = i
				break
			}
		}
		if found < 0 {
			for _, a := range remaining {
				if reflect.TypeOf(a) == reflect.TypeOf(e) {
					matcher.closest[len(matcher.missing)] = a
					break
				}
			}
			matcher.missing = append(matcher.missing, e)
			continue
		}
		remaining = append(remaining[:found], remaining[found+1:]...)
	}
	matcher.unexpected = nil
	if matcher.exact {
		matcher.unexpected = remaining
	}
	return len(matcher.missing) == 0 && len(matcher.unexpected) == 0, nil
}

func (matcher *testDataMatcher) report() string {
	var b strings.Builder
	for i, m := range matcher.missing {
		fmt.Fprintf(&b, "missing row:\n%s\n", gomegaformat.Object(m, 1))
		if a, ok := matcher.closest[i]; ok {
			fmt.Fprintf(&b, "diff against a row of the same table (-want +got):\n%s\n", cmp.Diff(m, a, cmpOptions(matcher.ignoreUUID)...))
		}
	}
	for _, u := range matcher.unexpected {
		fmt.Fprintf(&b, "unexpected row:\n%s\n", gomegaformat.Object(u, 1))
	}
	return b.String()
}

func (matcher *testDataMatcher) FailureMessage(actual interface{}) string {
	return fmt.Sprintf("Expected database to hold the expected rows\n%s", matcher.report())
}

func (matcher *testDataMatcher) NegatedFailureMessage(actual interface{}) string {
	return gomegaformat.Message(matcher.expected, "not to be the database content")
}
