/*Package interval implements interval-union operations over genomic
  coordinates, as read from BED files or built from region lists.
  Overlapping intervals are merged, not tracked separately.
  Lookups are by chromosome name; a chromosome absent from the union contains
  nothing.  Every position must fit in a PosType (int32, the BAM limit).
*/
package interval
