package deck

import "strings"

type section struct {
	name  string
	names map[string]struct{}
}

func (s section) has(basename string) bool {
	_, ok := s.names[basename]
	return ok
}

func newSection(name, fields string) section {
	s := section{name: name, names: make(map[string]struct{})}
	for _, f := range strings.Fields(fields) {
		s.names[f] = struct{}{}
	}
	return s
}

// registry is the ordered table of common-block sections. A basename
// listed under several sections lands in the first one.
var registry = []section{
	newSection("Datasets", `ndtset jdtset udtset`),
	newSection("Basis set", `ecut ecutsm`),
	newSection("Bands", `nband nbdbuf`),
	newSection("k-point grid", `
		kptopt nshiftk shiftk ngkpt kptrlatt nkpt kpt wtk kptnrm kptbounds
		ndivk ndivsm nqpt qpt qptnrm nshiftq shiftq ngqpt`),
	newSection("Models", `ixc ppmodel ppmfreq usepawu upawu jpawu`),
	newSection("PAW options", `
		bxctmindg dmatpawu iboxcut ngfftdg pawcpxocc pawcross pawecutdg
		pawfatbnd pawlcutd pawlmix pawmixdg pawnhatxc pawnphi pawntheta
		pawnzlm pawoptmix pawovlp pawprtden pawprtdos pawprtvol pawprtwf
		pawspnorb pawstgylm pawsushat pawujat pawujrad pawujv pawusecp
		pawxcdev ptcharge quadmom`),
	newSection("SCF procedure", `
		iscf nstep nline tolvrs tolwfr toldff toldfe tolrff iprcel iprcch
		getwfk getden diemac diemix`),
	newSection("KSS generation", `kssform nbandkss`),
	newSection("GW procedure", `
		optdriver gwcalctyp spmeth nkptgw kptgw bdgw nqptdm qptdm`),
	newSection("GW param", `
		ecuteps ecutsigx ecutwfn nomegasf nfreqim nfreqre freqremax npweps
		rhoqpmix`),
	newSection("GW options", `userre awtr symchi symsigma gwmem fftgw`),
	newSection("Structural optimization", `
		amu bmass delayperm diismemory dilatmx dtion dynimage friction
		fxcartfactor getcell getxcart getxred goprecon goprecprm iatcon
		iatfix iatfixx iatfixy iatfixz imgmov ionmov istatimg mdtemp mdwall
		natfix natfixx natfixy natfixz natcon nconeq nimage nnos noseinert
		ntime ntimimage optcell pimass pitransform qmass random_atpos
		signperm strfact strprecon strtarget tolimg tolmxf vel vis wtatcon`),
	newSection("Response function", `
		bdeigrf elph2_imagden esmear frzfermi ieig2rf mkqmem mk1mem prepanl
		prepgkk rfasr rfatpol rfddk rfdir rfelfd rfmeth rfphon rfstrs rfuser
		rf1atpol rf1dir rf1elfd rf1phon rf2atpol rf2dir rf2elfd rf2phon
		rf3atpol rf3dir rf3elfd rf3phon sciss smdelta td_maxene td_mexcit`),
	newSection("Wannier 90", `w90iniprj w90prtunk`),
	newSection("Parallelisation", `
		gwpara localrdwf ngroup_rf npband npfft nphf npimage npkpt nppert
		npspinor paral_atom paral_kgb paral_rf use_gpu_cuda`),
	newSection("Unit cell", `
		acell angdeg brvltt chkprim chksymbreak fband natom natrd nsym ntypat
		occopt rprim spgaxor spgorig spgroup symafm symrel tnons tsmear typat
		xangst xcart xred znucl`),
	newSection("Printing", `
		prtvol enunit prtbbb prtbltztrp prtcif prtden prtdensph prtdipole
		prtdos prtdosm prtebands prtefg prteig prtelf prtfc prtfsurf prtgden
		prtgeo prtgkk prtkden prtkpt prtlden prtnabla prtnest prtpmp
		prtposcar prtpot prtpsps prtspcur prtstm prtsuscep prtvha prtvhxc
		prtvxc prtwant prtwf prtxml prt1dm ptgroupma`),
	newSection("Files", `
		inclvkb get1den get1wf getbseig getbsreso getbscoup getddk
		getgam_eig2nkq gethaydock getocc getqps getscr getsuscep getvel getwfq
		irdbseig irdbsreso irdbscoup irdddk irdden irdkss irdqps irdscr
		irdsuscep irdwfk irdwfq ird1den ird1wf`),
}

// SectionOf returns the name of the section basename is filed under, or
// "Unsorted".
func SectionOf(basename string) string {
	for _, s := range registry {
		if s.has(basename) {
			return s.name
		}
	}
	return "Unsorted"
}

// SectionNames returns the registry section names in order.
func SectionNames() []string {
	names := make([]string, len(registry))
	for i, s := range registry {
		names[i] = s.name
	}
	return names
}
