package scenario_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pywr-go/pywr/scenario"
)

func TestNewDomainRejectsDuplicateNamesAndBadSizes(t *testing.T) {
	_, err := scenario.NewDomain(scenario.Group{Name: "a", Size: 0})
	require.ErrorIs(t, err, scenario.ErrInvalidGroupSize)

	_, err = scenario.NewDomain(scenario.Group{Name: "a", Size: 2}, scenario.Group{Name: "a", Size: 3})
	require.ErrorIs(t, err, scenario.ErrDuplicateGroupName)
}

func TestNewDomainWithNoGroupsYieldsOneDefaultScenario(t *testing.T) {
	d, err := scenario.NewDomain()
	require.NoError(t, err)
	require.Equal(t, 1, d.Len())

	s, err := d.Scenario(0)
	require.NoError(t, err)
	require.Equal(t, scenario.Scenario{SimulationID: 0, Indices: []int{0}}, s)
}

func TestDomainEnumeratesCartesianProductLastGroupFastest(t *testing.T) {
	d, err := scenario.NewDomain(scenario.Group{Name: "climate", Size: 2}, scenario.Group{Name: "demand", Size: 3})
	require.NoError(t, err)
	require.Equal(t, 6, d.Len())

	all := d.All()
	require.Len(t, all, 6)
	require.Equal(t, []int{0, 0}, all[0].Indices)
	require.Equal(t, []int{0, 1}, all[1].Indices)
	require.Equal(t, []int{0, 2}, all[2].Indices)
	require.Equal(t, []int{1, 0}, all[3].Indices)
	require.Equal(t, []int{1, 1}, all[4].Indices)
	require.Equal(t, []int{1, 2}, all[5].Indices)

	for k, s := range all {
		require.Equal(t, k, s.SimulationID)
	}
}

func TestDomainGroupIndexAndScenarioErrors(t *testing.T) {
	d, err := scenario.NewDomain(scenario.Group{Name: "climate", Size: 2})
	require.NoError(t, err)

	idx, err := d.GroupIndex("climate")
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	_, err = d.GroupIndex("missing")
	require.ErrorIs(t, err, scenario.ErrGroupNotFound)

	_, err = d.Scenario(-1)
	require.ErrorIs(t, err, scenario.ErrScenarioNotFound)
	_, err = d.Scenario(d.Len())
	require.ErrorIs(t, err, scenario.ErrScenarioNotFound)
}
