// Package model holds the records written by the temperature ETL job.
package model

// TemperatureRecord is one (country, year) row of the long-format output.
// Field names equal the Parquet column names so that the schema read back from a part
// file matches the schema derived from this struct.
type TemperatureRecord struct {
	ObjectId    *int32   `parquet:"name=ObjectId, type=INT32, repetitiontype=OPTIONAL"`
	Country     *string  `parquet:"name=Country, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ISO3        *string  `parquet:"name=ISO3, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Year        int32    `parquet:"name=Year, type=INT32, repetitiontype=REQUIRED"`
	Temperature *float64 `parquet:"name=Temperature, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// Columns lists the output columns in file order.
var Columns = []string{"ObjectId", "Country", "ISO3", "Year", "Temperature"}
