package market

import "fmt"

// columnTarget is one normalized output column plus the ordered list of
// source aliases (Korean KRX labels or English ones) that may carry it.
// This replaces the "rename by Korean column name" pattern of the pykrx
// wrapper with a single declarative resolution table applied once per
// source frame, per the typed-row design note.
type columnTarget struct {
	name    string
	aliases []string
}

// resolveColumn finds which alias is present in a row's raw field map and
// returns that alias. Callers use the returned key to pull the value out
// of the row. An error names the target and the observed columns, so
// schema failures are diagnosable per §7.
func resolveColumn(row map[string]string, target columnTarget) (string, error) {
	for _, alias := range target.aliases {
		if _, ok := row[alias]; ok {
			return alias, nil
		}
	}
	observed := make([]string, 0, len(row))
	for k := range row {
		observed = append(observed, k)
	}
	return "", fmt.Errorf("schema error: no column for target %q among aliases %v; observed columns: %v",
		target.name, target.aliases, observed)
}

var (
	targetOpen   = columnTarget{"open", []string{"open", "시가", "OPN_PRC", "TDD_OPNPRC"}}
	targetHigh   = columnTarget{"high", []string{"high", "고가", "HGH_PRC", "TDD_HGPRC"}}
	targetLow    = columnTarget{"low", []string{"low", "저가", "LOW_PRC", "TDD_LWPRC"}}
	targetClose  = columnTarget{"close", []string{"close", "종가", "CLS_PRC", "TDD_CLSPRC"}}
	targetVolume = columnTarget{"volume", []string{"volume", "거래량", "ACC_TRDVOL"}}
	targetValue  = columnTarget{"value", []string{"value", "거래대금", "ACC_TRDVAL"}}

	targetMCap   = columnTarget{"mcap", []string{"mcap", "시가총액", "MKTCAP"}}
	targetShares = columnTarget{"shares", []string{"shares", "상장주식수", "LIST_SHRS"}}

	targetPER = columnTarget{"per", []string{"per", "PER", "EST_PER"}}
	targetPBR = columnTarget{"pbr", []string{"pbr", "PBR"}}
	targetEPS = columnTarget{"eps", []string{"eps", "EPS"}}
	targetBPS = columnTarget{"bps", []string{"bps", "BPS"}}
	targetDiv = columnTarget{"div", []string{"div", "DVD_YLD", "DIV"}}
	targetDPS = columnTarget{"dps", []string{"dps", "DPS"}}

	targetTicker = columnTarget{"ticker", []string{"ticker", "ISU_SRT_CD", "ISU_CD"}}
	targetName   = columnTarget{"name", []string{"name", "ISU_ABBRV", "ISU_NM"}}
)
