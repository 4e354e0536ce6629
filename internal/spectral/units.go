package spectral

// micronsPerCentimeter converts between μm wavelength and cm⁻¹ wavenumber.
const micronsPerCentimeter = 1e4

// WavelengthToWavenumber converts a wavelength in μm to a wavenumber in cm⁻¹.
func WavelengthToWavenumber(micron float64) float64 {
	return micronsPerCentimeter / micron
}

// WavenumberToWavelength converts a wavenumber in cm⁻¹ to a wavelength in μm.
func WavenumberToWavelength(wavenumber float64) float64 {
	return micronsPerCentimeter / wavenumber
}
